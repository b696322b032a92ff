// deploycert is a certbot deploy hook that restarts or reloads the
// services depending on freshly renewed certificates.
package main

import "github.com/deploycert/deploycert/cli"

func main() {
	cli.Execute()
}
