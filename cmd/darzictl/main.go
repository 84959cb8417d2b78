// Command darzictl is the DarziFlow command-line client.
package main

import "github.com/darziflow/console/cmd/darzictl/cmd"

func main() {
	cmd.Execute()
}
