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

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/vectorflow/core"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// IndexMUS serializes index descriptors.
var IndexMUS mus.Serializer[core.Index] = indexMUS{}

// VectorRecordMUS serializes vector records. Metadata is encoded as a
// protobuf Struct so it round-trips with the same value model the hosted
// index uses.
var VectorRecordMUS mus.Serializer[core.VectorRecord] = vectorRecordMUS{}

// CheckpointMUS serializes backfill checkpoints.
var CheckpointMUS mus.Serializer[core.Checkpoint] = checkpointMUS{}

type indexMUS struct{}

func (indexMUS) Marshal(v core.Index, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int.Marshal(v.Dimensions, bs[n:])
	return n + ord.String.Marshal(v.Namespace, bs[n:])
}

func (indexMUS) Unmarshal(bs []byte) (v core.Index, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Dimensions, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Namespace, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (indexMUS) Size(v core.Index) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Int.Size(v.Dimensions)
	return size + ord.String.Size(v.Namespace)
}

func (indexMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

// float32sMUS encodes a length prefix followed by fixed-width floats.
type float32sMUS struct{}

func (float32sMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (float32sMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length*4 > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (float32sMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (float32sMUS) Skip(bs []byte) (n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	for range length {
		n1, err = raw.Float32.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

var float32s = float32sMUS{}

// encodeMetadata returns the protobuf encoding of metadata, or "" for nil metadata.
func encodeMetadata(md core.Metadata) (string, error) {
	if md == nil {
		return "", nil
	}
	st, err := structpb.NewStruct(md)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return string(data), nil
}

func decodeMetadata(s string) (core.Metadata, error) {
	if s == "" {
		return nil, nil
	}
	var st structpb.Struct
	if err := proto.Unmarshal([]byte(s), &st); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.Metadata(st.AsMap()), nil
}

type vectorRecordMUS struct{}

// Marshal panics on metadata that cannot be represented as a protobuf Struct;
// use MarshalVectorRecord to get an error instead.
func (vectorRecordMUS) Marshal(v core.VectorRecord, bs []byte) (n int) {
	md, err := encodeMetadata(v.Metadata)
	if err != nil {
		panic(err)
	}
	n = ord.String.Marshal(v.ID, bs)
	n += float32s.Marshal(v.Values, bs[n:])
	return n + ord.String.Marshal(md, bs[n:])
}

func (vectorRecordMUS) Unmarshal(bs []byte) (v core.VectorRecord, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Values, n1, err = float32s.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var md string
	md, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, err = decodeMetadata(md)
	return
}

func (vectorRecordMUS) Size(v core.VectorRecord) (size int) {
	md, err := encodeMetadata(v.Metadata)
	if err != nil {
		panic(err)
	}
	size = ord.String.Size(v.ID)
	size += float32s.Size(v.Values)
	return size + ord.String.Size(md)
}

func (vectorRecordMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = float32s.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(v core.Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int64.Marshal(v.Offset, bs[n:])
	return n + varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
}

func (checkpointMUS) Unmarshal(bs []byte) (v core.Checkpoint, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Offset, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt = time.UnixMicro(micros).UTC()
	return
}

func (checkpointMUS) Size(v core.Checkpoint) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Int64.Size(v.Offset)
	return size + varint.Int64.Size(v.UpdatedAt.UnixMicro())
}

func (checkpointMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	for range 2 {
		n1, err = varint.Int64.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

// MarshalIndex serializes an Index to bytes.
func MarshalIndex(index *core.Index) []byte {
	buf := make([]byte, IndexMUS.Size(*index))
	IndexMUS.Marshal(*index, buf)
	return buf
}

// UnmarshalIndex deserializes an Index from bytes.
func UnmarshalIndex(data []byte) (*core.Index, error) {
	index, _, err := IndexMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &index, nil
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(record *core.VectorRecord) ([]byte, error) {
	if _, err := encodeMetadata(record.Metadata); err != nil {
		return nil, err
	}
	buf := make([]byte, VectorRecordMUS.Size(*record))
	VectorRecordMUS.Marshal(*record, buf)
	return buf, nil
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*core.VectorRecord, error) {
	record, _, err := VectorRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, CheckpointMUS.Size(*checkpoint))
	CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &checkpoint, nil
}
