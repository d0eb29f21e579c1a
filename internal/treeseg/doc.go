// Package treeseg separates individual tree crowns out of an unlabelled 3D
// point cloud.
//
// The point set is cut into horizontal bands of fixed height, each band is
// clustered in the horizontal plane, and clusters in consecutive bands whose
// centroids lie within the search radius are chained into vertical stacks.
// Stacks with enough points become trees; everything else is noise (label 0).
//
// Pipeline:
//
//	points -> Slice -> [LayerClusterer per band, in parallel] -> Linker (in band order) -> Assemble
//
// Points are identified by their index in the input slice throughout; labels
// in a Result line up with that slice.
package treeseg
