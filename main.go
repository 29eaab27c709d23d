package main

import "github.com/HPNChanel/data-guardian/cmd/dgcore"

func main() { dgcore.Execute() }
