// Command heapctl inspects and exercises the program break.
package main

func main() {
	execute()
}
