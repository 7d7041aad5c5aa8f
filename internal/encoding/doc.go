// Package encoding drives ffmpeg to produce HLS renditions and preview frames.
//
// Engine is the capability the pipeline depends on. FFmpeg implements it by
// shelling out through a commandRunner so argument construction can be tested
// without the binaries installed.
package encoding
