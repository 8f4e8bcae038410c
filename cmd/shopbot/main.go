package main

import "shop-bot/internal/cli/commands"

func main() {
	commands.Execute()
}
