// Package domain holds the core entities of the concert companion platform
// and the store interfaces the liveness subsystem consumes.
package domain
