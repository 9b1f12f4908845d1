package script

import (
	"strconv"
	"strings"
)

// CopyPrefix 平台複製模組時加上的前綴
const CopyPrefix = "Copy of "

// Rename 一次模組改名
type Rename struct {
	ModuleType string
	From       string
	To         string
}

// DedupModuleNames 移除模組名稱中的 "Copy of " 並為重複名稱編號
//
// 依文件順序走訪一次：名稱第一次出現保持原樣，第 n 次重複
// 改為 "{名稱} {n}"。產生的名稱若已被其他模組使用，n 繼續遞增
// 直到名稱未被佔用。沒有 moduleName 的模組略過。
func DedupModuleNames(doc *Document) []Rename {
	nodes := doc.ModuleNodes()

	// 所有模組去除前綴後的名稱都保留給第一次出現者
	reserved := make(map[string]bool, len(nodes))
	for _, m := range nodes {
		if name, ok := m.Name(); ok {
			reserved[strings.ReplaceAll(name, CopyPrefix, "")] = true
		}
	}

	frequency := make(map[string]int)
	taken := make(map[string]bool, len(nodes))
	var renames []Rename

	for _, m := range nodes {
		name, ok := m.Name()
		if !ok {
			continue
		}

		normalized := strings.ReplaceAll(name, CopyPrefix, "")
		count, seen := frequency[normalized]
		newName := normalized
		if seen {
			for {
				count++
				newName = normalized + " " + strconv.Itoa(count)
				if !reserved[newName] && !taken[newName] {
					break
				}
			}
		}
		frequency[normalized] = count
		taken[newName] = true

		if newName == name {
			continue
		}

		m.SetName(newName)
		renames = append(renames, Rename{ModuleType: m.Type(), From: name, To: newName})
	}
	return renames
}
