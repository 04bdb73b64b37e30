// Command arena runs the arena demo game on the realtime driver.
package main

func main() {
	Execute()
}
