package main

import "waypoint-sync/cmd"

func main() {
	cmd.Execute()
}
