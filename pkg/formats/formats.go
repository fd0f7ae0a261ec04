// Package formats provides parsers for Ragnarok Online file formats.
package formats

// Note: RSM (Resource Static Model) is implemented in rsm.go
// Note: RSM to LOD input conversion is implemented in rsm_lod.go
