// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exabin

import (
	"encoding/binary"
	"unsafe"
)

// nativeEndian is the byte order of the host this binary was compiled for.
// Every integer and double in the alignment format is in "the host byte
// order of the producing host" (§4.1), so a reader on a different-endian
// host would see garbage regardless of what the sizeof_size_t/magic gate
// says; in practice every host this kernel runs on is little-endian, but
// we detect it explicitly rather than assume, the way low-level byte-layout
// code elsewhere in the pack (e.g. base/unsafe) avoids baking in an
// assumption it can check instead.
var nativeEndian = detectNativeEndian()

func detectNativeEndian() binary.ByteOrder {
	var x uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&x))
	if b[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
