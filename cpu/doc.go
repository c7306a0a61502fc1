// Package cpu implements the LC-3 processor and assembler.
//
// The CPU consists of eight 16-bit general-purpose registers (r0-r7), a
// program counter (PC), a single condition flag (n, z or p), and a 64K word
// memory with memory-mapped keyboard registers. TRAP instructions provide
// console I/O through an injected Console.
//
// The assembler accepts the classic LC-3 assembly language (.ORIG, .FILL,
// .BLKW, .STRINGZ, .END) extended with equates, macros, and compile-time
// $(...) expression evaluation.
package cpu
