// Package script 將 IVR 腳本 XML 解析為可修改的樹狀結構
package script

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"vccadmin/internal/vcc"
)

const (
	TagModules       = "modules"
	TagUserVariables = "userVariables"
	TagModuleName    = "moduleName"
)

// Document 已解析的腳本
type Document struct {
	root      *etree.Element
	modules   *etree.Element
	variables *etree.Element

	// RawSource 取得時的原始文字
	RawSource string
}

// Parse 解析腳本 XML
//
// 不論宣告的編碼為何一律視為 UTF-8。根元素下必須恰好有一個
// modules 與一個 userVariables。
func Parse(xml string) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := doc.ReadFromString(xml); err != nil {
		return nil, vcc.NewError(vcc.KindParse, "parse script", 0, fmt.Errorf("%w: %v", vcc.ErrParse, err))
	}

	root := doc.Root()
	if root == nil {
		return nil, vcc.Errorf(vcc.KindParse, "parse script", "%v: document has no root element", vcc.ErrParse)
	}

	modules, err := singleChild(root, TagModules)
	if err != nil {
		return nil, err
	}
	variables, err := singleChild(root, TagUserVariables)
	if err != nil {
		return nil, err
	}

	return &Document{
		root:      root,
		modules:   modules,
		variables: variables,
		RawSource: xml,
	}, nil
}

func singleChild(root *etree.Element, tag string) (*etree.Element, error) {
	children := root.SelectElements(tag)
	switch len(children) {
	case 1:
		return children[0], nil
	case 0:
		return nil, vcc.Errorf(vcc.KindParse, "parse script", "%v: missing %s", vcc.ErrParse, tag)
	default:
		return nil, vcc.Errorf(vcc.KindParse, "parse script", "%v: %d %s elements, want 1", vcc.ErrParse, len(children), tag)
	}
}

// Serialize 輸出根元素，不含 XML 宣告
func (d *Document) Serialize() (string, error) {
	out := etree.NewDocument()
	out.SetRoot(d.root.Copy())
	s, err := out.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize script: %w", err)
	}
	return s, nil
}

// Root 返回根元素
func (d *Document) Root() *etree.Element {
	return d.root
}

// UserVariables 返回 userVariables 元素
func (d *Document) UserVariables() *etree.Element {
	return d.variables
}

// ModuleNode modules 下的一個模組，標籤即模組類型
type ModuleNode struct {
	el *etree.Element
}

// Type 模組類型
func (m ModuleNode) Type() string {
	return m.el.Tag
}

// Name 模組顯示名稱，沒有 moduleName 子元素時 ok 為 false
func (m ModuleNode) Name() (name string, ok bool) {
	n := m.el.SelectElement(TagModuleName)
	if n == nil {
		return "", false
	}
	return n.Text(), true
}

// SetName 設定模組顯示名稱
func (m ModuleNode) SetName(name string) {
	n := m.el.SelectElement(TagModuleName)
	if n == nil {
		n = m.el.CreateElement(TagModuleName)
	}
	n.SetText(name)
}

// Element 返回底層元素
func (m ModuleNode) Element() *etree.Element {
	return m.el
}

// ModuleNodes 依文件順序返回所有模組
func (d *Document) ModuleNodes() []ModuleNode {
	children := d.modules.ChildElements()
	nodes := make([]ModuleNode, len(children))
	for i, c := range children {
		nodes[i] = ModuleNode{el: c}
	}
	return nodes
}

// Variables 依文件順序返回所有使用者變數名稱
func (d *Document) Variables() []string {
	var names []string
	for _, entry := range d.variables.SelectElements("entry") {
		if key := entry.SelectElement("key"); key != nil {
			names = append(names, strings.TrimSpace(key.Text()))
		}
	}
	return names
}
