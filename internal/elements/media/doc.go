// Package media provides the demuxing and decoding stages.
//
// Packets travel between stages as PacketData and are owned by exactly one
// stage at a time. The stage that consumes a packet frees it, and packets
// that reach no consumer are freed by the demuxer.
//
//	                    +--> video decoder --> ...
//	+-------+  video    |
//	| demux |-----------+
//	+-------+  audio    |
//	                    +--> audio decoder --> ...
package media
