// Package verify provides structural validation for compound binary
// containers.
//
// # Overview
//
// The checks detect corruption without repairing it. Validation categories:
//   - Header: signature, byte order, sector shift pair, BAT/XBAT counts,
//     file length
//   - Directory: entries that cannot be decoded
//   - Allocation tables: BAT and XBAT sectors marked as such in the BAT,
//     successors that point at governed sectors
//   - Chains: directory, SBAT, mini stream and every stream entry have
//     exactly the length their declared size needs, and no sector belongs
//     to two chains
//
// # Quick Start
//
//	data, _ := os.ReadFile("report.doc")
//	if err := verify.AllInvariants(data); err != nil {
//	    fmt.Printf("Validation failed: %v\n", err)
//	}
//
// Collect every failure instead of the first:
//
//	for _, err := range verify.Collect(data) {
//	    fmt.Println(err)
//	}
package verify
