package main

import "github.com/dietapronta/checkout-funnel/cmd"

func main() {
	cmd.Execute()
}
