/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/

package flag

import (
	"flag"
	"testing"
)

const (
	Ingester  = "ingester"
	Publisher = "publisher"
)

var (
	IsDevelopment = flag.Bool("dev", true, "set to true if the current run is for development. default value is true")
	ServiceName   = flag.String("service", Ingester, "'ingester' or 'publisher'")
)

func init() {
	// In test binaries the testing package registers its -test.* flags
	// after package initialization, so parsing here would fail on them.
	if !testing.Testing() {
		flag.Parse()
	}
}
