package avi

import (
	"bytes"
	"encoding/binary"
	"io"
)

// riffNode is a generic parsed RIFF chunk or list, used only by tests to
// verify what Writer actually put on disk. It mirrors the teacher's
// demuxer's recursive descent over RIFF structure, collapsed into a single
// tree type instead of a field-by-field state machine, since tests only
// need to locate and read chunks, not decode every known chunk type.
type riffNode struct {
	tag      FourCC
	isList   bool
	listType FourCC
	data     []byte
	children []riffNode
}

func (n riffNode) find(tag FourCC) (riffNode, bool) {
	for _, c := range n.children {
		if c.tag == tag {
			return c, true
		}
	}
	return riffNode{}, false
}

func (n riffNode) findAll(tag FourCC) []riffNode {
	var out []riffNode
	for _, c := range n.children {
		if c.tag == tag {
			out = append(out, c)
		}
		if c.isList {
			out = append(out, c.findAll(tag)...)
		}
	}
	return out
}

// parseTopLevel parses every top-level RIFF chunk in data (normally exactly
// one "RIFF" and, for multi-RIFF OpenDML files, one or more "RIFF"/AVIX
// chunks back to back).
func parseTopLevel(data []byte) ([]riffNode, error) {
	r := bytes.NewReader(data)
	var nodes []riffNode
	for r.Len() > 0 {
		n, err := parseOneNode(r)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// structFromBytes decodes a fixed-layout wire struct from raw bytes, the
// inverse of binary.Write, for asserting on parsed chunk payloads in tests.
func structFromBytes(b []byte, v any) error {
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, v)
}

func parseOneNode(r *bytes.Reader) (riffNode, error) {
	var tagBytes, sizeBytes [4]byte
	if _, err := io.ReadFull(r, tagBytes[:]); err != nil {
		return riffNode{}, err
	}
	if _, err := io.ReadFull(r, sizeBytes[:]); err != nil {
		return riffNode{}, err
	}
	tag := NewFourCCFromBytes(tagBytes)
	size := binary.LittleEndian.Uint32(sizeBytes[:])

	if tag == fccRIFF || tag == fccLIST {
		var listTypeBytes [4]byte
		if _, err := io.ReadFull(r, listTypeBytes[:]); err != nil {
			return riffNode{}, err
		}
		listType := NewFourCCFromBytes(listTypeBytes)
		payload := make([]byte, int(size)-4)
		if _, err := io.ReadFull(r, payload); err != nil {
			return riffNode{}, err
		}
		children, err := parseTopLevel(payload)
		if err != nil {
			return riffNode{}, err
		}
		if size%2 != 0 {
			r.Seek(1, io.SeekCurrent)
		}
		return riffNode{tag: listType, isList: true, listType: listType, children: children}, nil
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return riffNode{}, err
	}
	if size%2 != 0 {
		r.Seek(1, io.SeekCurrent)
	}
	return riffNode{tag: tag, data: payload}, nil
}
