// ppcc is the operator command of buffer pool and lock table.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

func main() {
	setupLockChecking()
	if err := newRootCmd(afero.NewOsFs()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
