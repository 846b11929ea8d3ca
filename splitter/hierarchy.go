package splitter

import (
	"fmt"

	"github.com/poiesic/indexit/core"
)

// parentSizeCeiling is the hard cap on parent chunk size regardless of
// configuration. Parents exist to give retrieval context, not to hold whole
// documents.
const parentSizeCeiling = 4000

// Node is one entry in the flat hierarchy arena produced by BuildHierarchy.
// ParentIndex points at the parent node's position in the same slice, or -1
// for parent nodes themselves. Identities are assigned at persistence time;
// until then the index is the only link.
type Node struct {
	Segment     core.Segment
	ParentIndex int
}

// BuildHierarchy produces a two-level parent/child segmentation: coarse
// parent chunks split with parentCfg, each re-split with childCfg into the
// fine chunks that embedding and search operate on. The result is a single
// flat slice in document order, parents immediately followed by their
// children, with Position numbered sequentially from 1.
func BuildHierarchy(text string, parentCfg, childCfg Config) ([]Node, error) {
	if err := parentCfg.Validate(); err != nil {
		return nil, fmt.Errorf("parent config: %w", err)
	}
	if err := childCfg.Validate(); err != nil {
		return nil, fmt.Errorf("child config: %w", err)
	}
	if parentCfg.ChunkSize <= childCfg.ChunkSize {
		return nil, fmt.Errorf("%w: parent chunk size %d must exceed child chunk size %d",
			ErrInvalidChunkSize, parentCfg.ChunkSize, childCfg.ChunkSize)
	}
	if parentCfg.ChunkSize > parentSizeCeiling {
		parentCfg.ChunkSize = parentSizeCeiling
	}

	parents, err := Split(text, parentCfg)
	if err != nil {
		return nil, err
	}

	var nodes []Node
	position := 1

	for _, parentContent := range parents {
		parentIdx := len(nodes)
		nodes = append(nodes, Node{
			Segment: core.Segment{
				Position:       position,
				Content:        parentContent,
				WordCount:      WordCount(parentContent),
				Tokens:         EstimateTokens(parentContent),
				Status:         core.SegmentWaiting,
				SegmentType:    core.SegmentTypeParent,
				HierarchyLevel: 0,
			},
			ParentIndex: -1,
		})
		position++

		children, err := Split(parentContent, childCfg)
		if err != nil {
			return nil, err
		}
		for order, childContent := range children {
			nodes = append(nodes, Node{
				Segment: core.Segment{
					Position:       position,
					Content:        childContent,
					WordCount:      WordCount(childContent),
					Tokens:         EstimateTokens(childContent),
					Status:         core.SegmentWaiting,
					SegmentType:    core.SegmentTypeChild,
					HierarchyLevel: 1,
					ChildOrder:     order + 1,
				},
				ParentIndex: parentIdx,
			})
			position++
		}
		nodes[parentIdx].Segment.ChildCount = len(children)
	}
	return nodes, nil
}
