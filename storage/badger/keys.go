// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/indexit/core"
)

// Key prefixes. Record keys hold the serialized record under
// "<prefix>:<id>"; index keys hold a serialized ID under a composite
// prefix so prefix iteration yields records in key order.
const (
	documentPrefix  = "docrec"
	documentSeq     = "docrecseq"
	segmentPrefix   = "segrec"
	segmentSeq      = "segrecseq"
	embeddingPrefix = "embrec"
	embeddingSeq    = "embrecseq"

	// segdoc:<documentID BE><position BE> -> segment ID
	segmentByDocPrefix = "segdoc:"

	// dsdoc:<datasetID BE><documentID BE> -> document ID
	documentByDatasetPrefix = "dsdoc:"

	// embhash:<hex hash> -> embedding ID
	embeddingByHashPrefix = "embhash:"

	checkpointSuffix = ":chkpt"
)

func recordKey(prefix string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", prefix, id))
}

// beID encodes an ID big-endian so index keys sort numerically.
func beID(id core.ID) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func bePosition(position int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(position))
	return buf[:]
}

// segmentByDocKey orders a document's segments by position.
func segmentByDocKey(documentID core.ID, position int) []byte {
	key := make([]byte, 0, len(segmentByDocPrefix)+16)
	key = append(key, segmentByDocPrefix...)
	key = append(key, beID(documentID)...)
	key = append(key, bePosition(position)...)
	return key
}

func segmentByDocScanPrefix(documentID core.ID) []byte {
	key := make([]byte, 0, len(segmentByDocPrefix)+8)
	key = append(key, segmentByDocPrefix...)
	key = append(key, beID(documentID)...)
	return key
}

func documentByDatasetKey(datasetID, documentID core.ID) []byte {
	key := make([]byte, 0, len(documentByDatasetPrefix)+16)
	key = append(key, documentByDatasetPrefix...)
	key = append(key, beID(datasetID)...)
	key = append(key, beID(documentID)...)
	return key
}

func documentByDatasetScanPrefix(datasetID core.ID) []byte {
	key := make([]byte, 0, len(documentByDatasetPrefix)+8)
	key = append(key, documentByDatasetPrefix...)
	key = append(key, beID(datasetID)...)
	return key
}

func embeddingByHashKey(hash string) []byte {
	return []byte(embeddingByHashPrefix + hash)
}

func checkpointKey(stage string, documentID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d%s", stage, documentID, checkpointSuffix))
}
