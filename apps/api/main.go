package main

import (
	"flag"
)

func main() {
	inmem := flag.Bool("inmem", false, "serve from an in-memory database (demo data is not loaded)")
	flag.Parse()

	start(*inmem)
}
