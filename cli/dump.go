package cli

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"github.com/user-none/opn2/emu"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          false,
	SortKeys:                true,
}

// Dump writes the decoded register file and the sequencing snapshot of c.
func Dump(w io.Writer, c *emu.Chip) {
	fmt.Fprintf(w, "%s registers:\n", c.Variant())
	dumpConfig.Fdump(w, c.Registers())
	fmt.Fprintf(w, "%s snapshot:\n", c.Variant())
	dumpConfig.Fdump(w, c.Snapshot())
}
