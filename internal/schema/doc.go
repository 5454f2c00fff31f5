// Package schema defines type tables and checks documents against them.
//
// Type tables are authored in CUE, one struct per absolute table path:
//
//	table: "/calorimeter/gains": {
//		comment: "per-channel gain"
//		columns: [
//			{name: "channel", type: "int"},
//			{name: "gain"}, // type defaults to double
//		]
//	}
//
// Definitions are unified with an embedded CUE schema (#Table) before they
// are decoded, so unknown fields, bad cell types and empty column lists are
// reported with file positions.
package schema
