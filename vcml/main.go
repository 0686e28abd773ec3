// Command vcml elaborates and runs a small virtual platform.
package main

import "github.com/slahiruk/vcml/vcml/cmd"

func main() {
	cmd.Execute()
}
