// Package util holds small helpers shared by the HTTP and job layers.
package util
