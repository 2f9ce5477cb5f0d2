package main

import "orderbot/internal/app"

func main() {
	app.Main()
}
