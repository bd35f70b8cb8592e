// Command gsts renders and serves Gaussian scale-space terrain shading tiles.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
