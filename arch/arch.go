// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch holds the wire-format byte order shared by the frame and
// multistack packers. The cluster wire protocol is not required to be
// endianness-portable across heterogeneous peers, so a single fixed order
// suffices; it is kept as its own tiny package, rather than inlined, so
// every packer in the module agrees on it without importing each other.
package arch

import "encoding/binary"

// WireOrder is the byte order used by Pack/Unpack throughout this module.
var WireOrder = binary.LittleEndian

// PutUint64, Uint64, PutUint32 and Uint32 are thin wrappers over
// WireOrder; the frame and multistack packers call these rather than
// WireOrder itself.
func PutUint64(buf []byte, v uint64) { WireOrder.PutUint64(buf, v) }
func Uint64(buf []byte) uint64       { return WireOrder.Uint64(buf) }
func PutUint32(buf []byte, v uint32) { WireOrder.PutUint32(buf, v) }
func Uint32(buf []byte) uint32       { return WireOrder.Uint32(buf) }
