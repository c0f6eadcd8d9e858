//go:build !cgo

package store

const nativeAvailable = false
