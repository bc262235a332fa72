// Command gotrends validates change-detection results against a reference
// land-cover-change raster, chip by chip, across one ARD grid cell.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}
