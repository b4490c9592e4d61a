// Package cli implements the rosterly command line interface.
package cli
