// Package addr models addresses in the address spaces a linker places objects into.
//
// # Addresses and formats
//
// An Address is an integer tagged with the Format it belongs to. Formats define
// offset arithmetic, conversion from and to the integers stored in binaries,
// and printing. Addresses are only comparable when their formats are
// compatible; mixing formats is a programming error and panics.
//
//	cpu := addr.NewLinear("cpu", 0)
//	a, _ := cpu.FromInteger(0x8000)
//	b := a.Add(0x10)      // 0x8010
//	d := b.Sub(a)         // 16
//
// # Maps
//
// A Map converts between the file offsets of a target binary (source side)
// and the canonical address space objects are packed into (target side).
// IdentityMap and RegionMap are provided.
//
// # Layouts
//
// A Layout encodes a resolved address into binary patches:
//
//   - AbsoluteLayout stores the address integer
//   - RelativeLayout stores the distance to a base address
//   - HiLoLayout splits the distance into MIPS-style hi16/lo16 immediates
package addr
