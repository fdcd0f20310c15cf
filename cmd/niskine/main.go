/*
Copyright © 2022 the niskine authors.
This file is part of niskine.

niskine is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

niskine is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with niskine.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command niskine is a command-line interface for processing NISKINe
// mooring data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/modscripps/niskine/niskineutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := niskineutil.Root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
