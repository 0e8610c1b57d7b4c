// Command campaign generates benchmark sweeps for the batch scheduler and
// aggregates the artifacts they leave behind.
//
//	campaign plan                    list every leaf with its identifier and resources
//	campaign sweep [--dry-run]       submit every leaf, recording each in the ledger
//	campaign sweep --resume          submit only what the last campaign has not
//	campaign status                  join the ledger with the artifacts present
//	campaign aggregate [--prom f]    write the result table (and a metrics textfile)
//	campaign report                  render rate plots and an HTML chart page
package main

import (
	"log"

	"github.com/scale-lab/la-core/internal/fsutil"
	"github.com/scale-lab/la-core/internal/scheduler"
)

func main() {
	env := &environment{fs: fsutil.OSFileSystem{}, runner: scheduler.ExecRunner{}}
	if err := newRootCmd(env).Execute(); err != nil {
		log.Fatalf("campaign: %v", err)
	}
}
