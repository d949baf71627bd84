package main

import "quantum-ledger/internal/cli"

func main() {
	cli.Execute()
}
