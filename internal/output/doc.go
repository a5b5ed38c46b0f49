// Package output places program blobs at their destination.
//
// Files are written to a temporary file in the destination directory,
// synced, and renamed over the destination. A reader of the destination
// path sees either its previous contents or the complete new file, never a
// partial write. The temporary file is removed on every failure path.
package output
