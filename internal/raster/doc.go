// Package raster turns captured frames into the fixed-shape RGB rasters
// stored in the dataset. Every raster is a size×size×3 byte array regardless
// of source dimensions or format, and a uniform mid-gray placeholder of the
// same shape stands in for steps whose image is missing or unreadable.
package raster
