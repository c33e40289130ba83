package analyzer

import (
	"path"
	"sort"

	"gitworth/internal/appraisal"
)

// BuildTree folds per-file contribution records into the recursive folder
// tree. Files are ordered by path first, so folder insertion order (and with
// it the serialized subfolder order) is deterministic. Every aggregate on a
// node equals the sum over its base files and subfolders.
func BuildTree(files []appraisal.FileCredit) *appraisal.FolderNode {
	sorted := make([]appraisal.FileCredit, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	root := &appraisal.FolderNode{Path: ""}
	index := map[string]*appraisal.FolderNode{"": root}
	for _, f := range sorted {
		folder := ensureFolder(index, parentDir(f.Path))
		folder.BaseFiles = append(folder.BaseFiles, f)
	}
	aggregate(root)
	return root
}

func parentDir(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func ensureFolder(index map[string]*appraisal.FolderNode, dir string) *appraisal.FolderNode {
	if node, ok := index[dir]; ok {
		return node
	}
	parent := ensureFolder(index, parentDir(dir))
	node := &appraisal.FolderNode{Path: dir}
	parent.Subfolders = append(parent.Subfolders, node)
	index[dir] = node
	return node
}

// aggregate fills line counts, credits, shares and contributor sets bottom-up.
// A contributor's credit on a node is their share of each file's credits,
// summed; node shares are credits normalized by the node total.
func aggregate(node *appraisal.FolderNode) (lines int, credits float64, byContributor map[string]float64) {
	byContributor = make(map[string]float64)
	for _, f := range node.BaseFiles {
		lines += f.LineCount
		credits += f.Credits
		for contributor, share := range f.CreditShare {
			byContributor[contributor] += share * f.Credits
		}
	}
	for _, sub := range node.Subfolders {
		subLines, subCredits, subContribs := aggregate(sub)
		lines += subLines
		credits += subCredits
		for contributor, c := range subContribs {
			byContributor[contributor] += c
		}
	}

	node.LineCount = lines
	node.TotalCredits = credits
	node.CreditShare = make(map[string]float64, len(byContributor))
	node.Contributors = make([]string, 0, len(byContributor))
	for contributor, c := range byContributor {
		if credits > 0 {
			node.CreditShare[contributor] = c / credits
		}
		node.Contributors = append(node.Contributors, contributor)
	}
	sort.Strings(node.Contributors)
	return lines, credits, byContributor
}
