package main

import "pkbm/internal/app/server"

func main() {
	server.Run()
}
