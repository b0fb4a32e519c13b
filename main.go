package main

import "github.com/vibast-solutions/ms-go-sale-payments/cmd"

func main() {
	cmd.Execute()
}
