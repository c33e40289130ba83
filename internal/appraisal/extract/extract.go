// Package extract pulls a named subtree out of a cached whole-project
// appraisal. One root-level computation serves every folder-level request
// this way, so the lookup is a pure tree search with no cache writes.
package extract

import (
	"gitworth/internal/appraisal"
)

// Subtree locates folderPath inside the serialized root appraisal and returns
// it re-wrapped in an envelope whose folder_path names the matched folder.
//
// The boolean is false when the payload is empty or unparseable, when the
// cached appraisal is an error (there is no tree to extract from), or when no
// folder with that path exists. Absence is a result, never an error.
func Subtree(raw []byte, folderPath string) (*appraisal.Appraisal, bool) {
	root, err := appraisal.Decode(raw)
	if err != nil {
		return nil, false
	}
	if root.Status != appraisal.StatusOK || root.Folder == nil {
		return nil, false
	}

	target := appraisal.NormalizePath(folderPath)
	if target == "" {
		return root, true
	}

	node := descend(root.Folder, target)
	if node == nil {
		return nil, false
	}
	return root.ForFolder(target, node), true
}

// descend walks subfolders looking for the node whose full normalized path
// equals target. Paths are unique within a tree by construction, so the first
// match wins.
func descend(node *appraisal.FolderNode, target string) *appraisal.FolderNode {
	for _, child := range node.Subfolders {
		childPath := appraisal.NormalizePath(child.Path)
		if childPath == target {
			return child
		}
		if len(target) > len(childPath) && target[:len(childPath)+1] == childPath+"/" {
			if found := descend(child, target); found != nil {
				return found
			}
		}
	}
	return nil
}
