//go:build cgo

package store

// go-sqlite3 is a cgo binding
const nativeAvailable = true
