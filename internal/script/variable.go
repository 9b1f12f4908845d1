package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"vccadmin/internal/vcc"
)

// VariableType 使用者變數類型
type VariableType int

const (
	VariableTypeString VariableType = iota + 1
	VariableTypeInteger
)

// String 返回類型名稱
func (t VariableType) String() string {
	switch t {
	case VariableTypeString:
		return "string"
	case VariableTypeInteger:
		return "integer"
	default:
		return "unknown"
	}
}

// ValueTag 變數值元素的標籤
func (t VariableType) ValueTag() string {
	switch t {
	case VariableTypeString:
		return "stringValue"
	case VariableTypeInteger:
		return "integerValue"
	default:
		return ""
	}
}

// ParseVariableType 接受 string/str 與 integer/int
func ParseVariableType(s string) (VariableType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str":
		return VariableTypeString, nil
	case "integer", "int":
		return VariableTypeInteger, nil
	default:
		return 0, fmt.Errorf("%w: unknown variable type %q, must be one of: string, str, integer, int", vcc.ErrInvalidInput, s)
	}
}

// VariableSpec 要新增的變數
type VariableSpec struct {
	Name   string
	Type   VariableType
	Input  bool
	Output bool
}

// ParseVariableSpec 解析 "type:name" 格式，預設為輸入與輸出變數
func ParseVariableSpec(arg string) (VariableSpec, error) {
	typ, name, ok := strings.Cut(arg, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return VariableSpec{}, fmt.Errorf("%w: variable must be in the form type:name, got %q", vcc.ErrInvalidInput, arg)
	}
	t, err := ParseVariableType(typ)
	if err != nil {
		return VariableSpec{}, err
	}
	return VariableSpec{Name: strings.TrimSpace(name), Type: t, Input: true, Output: true}, nil
}

// AddOptions 新增變數選項
type AddOptions struct {
	// AllowDuplicate 允許同名變數重複新增
	AllowDuplicate bool
}

// AttributesFlag 輸入輸出屬性旗標
func AttributesFlag(input, output bool) int {
	switch {
	case input && output:
		return 192
	case output:
		return 128
	case input:
		return 64
	default:
		return 8
	}
}

// HasVariable 檢查是否已有同名變數
func HasVariable(doc *Document, name string) bool {
	for _, v := range doc.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// AddVariable 在 userVariables 最後加入一個變數宣告
func AddVariable(doc *Document, spec VariableSpec, opts AddOptions) error {
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("%w: variable name cannot be empty", vcc.ErrInvalidInput)
	}
	valueTag := spec.Type.ValueTag()
	if valueTag == "" {
		return fmt.Errorf("%w: unknown variable type %d", vcc.ErrInvalidInput, spec.Type)
	}
	if !opts.AllowDuplicate && HasVariable(doc, spec.Name) {
		return vcc.Errorf(vcc.KindConflict, "add variable", "variable %q already exists", spec.Name)
	}

	entry := doc.UserVariables().CreateElement("entry")
	addText(entry, "key", spec.Name)

	value := entry.CreateElement("value")
	addText(value, "name", spec.Name)
	addText(value, "description", "")
	typed := value.CreateElement(valueTag)
	addText(typed, "value", "")
	addText(typed, "id", "0")
	addText(value, "attributes", strconv.Itoa(AttributesFlag(spec.Input, spec.Output)))
	addText(value, "isNullValue", "true")

	return nil
}

func addText(parent *etree.Element, tag, text string) *etree.Element {
	e := parent.CreateElement(tag)
	e.SetText(text)
	return e
}
