// Command cfbctl inspects compound binary container files: header fields,
// directory entries, sector chains, and structural validity.
package main

func main() {
	execute()
}
