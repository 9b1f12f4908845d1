// Package soap 組裝與解析平台舊版管理 SOAP 介面的信封
package soap

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"vccadmin/internal/vcc"
)

const (
	NamespaceEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceService  = "http://service.admin.ws.five9.com/"
)

const envelopeTemplate = `<soapenv:Envelope xmlns:soapenv="` + NamespaceEnvelope + `" xmlns:ser="` + NamespaceService + `">` +
	`<soapenv:Header/><soapenv:Body>%s</soapenv:Body></soapenv:Envelope>`

// ScriptInfo getIVRScripts 回應中的一筆腳本
type ScriptInfo struct {
	Name          string
	Description   string
	XMLDefinition string
}

func envelope(body string) string {
	return fmt.Sprintf(envelopeTemplate, body)
}

// GetVCCConfigurationRequest 組裝網域設定查詢請求
func GetVCCConfigurationRequest() string {
	return envelope(`<ser:getVCCConfiguration/>`)
}

// GetIVRScriptsRequest 以名稱樣式查詢腳本
func GetIVRScriptsRequest(namePattern string) string {
	return envelope(`<ser:getIVRScripts><namePattern>` + escapeText(namePattern) + `</namePattern></ser:getIVRScripts>`)
}

// ModifyIVRScriptRequest 組裝腳本更新請求，xml 為尚未跳脫的腳本定義
func ModifyIVRScriptRequest(name, xml string) string {
	return envelope(`<ser:modifyIVRScript><scriptDef>` + WrapForSubmission(name, xml) + `</scriptDef></ser:modifyIVRScript>`)
}

// WrapForSubmission 將腳本定義嵌入 scriptDef 內容
//
// 只把 < 轉成 &lt;，> 保持原樣。
func WrapForSubmission(name, xml string) string {
	return `<name>` + escapeText(name) + `</name><xmlDefinition>` + EscapeDefinition(xml) + `</xmlDefinition>`
}

// EscapeDefinition 平台要求的跳脫規則：每個 < 換成 &lt;
func EscapeDefinition(xml string) string {
	return strings.ReplaceAll(xml, "<", "&lt;")
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// parse 解析回應並返回 Body 元素，Body 中帶有 Fault 時返回錯誤
func parse(op string, body []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, vcc.NewError(vcc.KindParse, op, 0, fmt.Errorf("%w: %v", vcc.ErrParse, err))
	}

	env := doc.SelectElement("Envelope")
	if env == nil {
		return nil, vcc.Errorf(vcc.KindParse, op, "%v: missing Envelope", vcc.ErrParse)
	}
	b := env.SelectElement("Body")
	if b == nil {
		return nil, vcc.Errorf(vcc.KindParse, op, "%v: missing Body", vcc.ErrParse)
	}
	if fault := b.SelectElement("Fault"); fault != nil {
		return nil, vcc.Errorf(vcc.KindStatus, op, "soap fault: %s", faultString(fault))
	}
	return b, nil
}

func faultString(fault *etree.Element) string {
	if fs := fault.SelectElement("faultstring"); fs != nil {
		return strings.TrimSpace(fs.Text())
	}
	return "unknown fault"
}

// FaultString 取出回應中的 faultstring，非 Fault 回應返回空字串
func FaultString(body []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return ""
	}
	fault := doc.FindElement("//Body/Fault")
	if fault == nil {
		return ""
	}
	return faultString(fault)
}

func childText(e *etree.Element, tag string) (string, bool) {
	c := e.SelectElement(tag)
	if c == nil {
		return "", false
	}
	return c.Text(), true
}

// ExtractScripts 解析 getIVRScripts 回應中的所有腳本
func ExtractScripts(body []byte) ([]ScriptInfo, error) {
	const op = "getIVRScripts"

	b, err := parse(op, body)
	if err != nil {
		return nil, err
	}
	resp := b.SelectElement("getIVRScriptsResponse")
	if resp == nil {
		return nil, vcc.Errorf(vcc.KindParse, op, "%v: missing getIVRScriptsResponse", vcc.ErrParse)
	}

	returns := resp.SelectElements("return")
	scripts := make([]ScriptInfo, 0, len(returns))
	for _, r := range returns {
		name, _ := childText(r, "name")
		desc, _ := childText(r, "description")
		def, ok := childText(r, "xmlDefinition")
		if !ok {
			return nil, vcc.Errorf(vcc.KindParse, op, "%v: script %q has no xmlDefinition", vcc.ErrParse, name)
		}
		scripts = append(scripts, ScriptInfo{Name: name, Description: desc, XMLDefinition: def})
	}
	return scripts, nil
}

// ExtractDefinition 取出名為 name 的腳本 XML 定義
//
// 名稱樣式可能比對到多筆，優先選擇名稱完全相同者；
// 沒有完全相同者時使用第一筆。
func ExtractDefinition(body []byte, name string) (string, error) {
	scripts, err := ExtractScripts(body)
	if err != nil {
		return "", err
	}
	if len(scripts) == 0 {
		return "", vcc.Errorf(vcc.KindNotFound, "getIVRScripts", "%v: no script matches %q", vcc.ErrNotFound, name)
	}
	for _, s := range scripts {
		if s.Name == name {
			return s.XMLDefinition, nil
		}
	}
	return scripts[0].XMLDefinition, nil
}

// ExtractVCCConfiguration 取出網域 ID 與名稱
func ExtractVCCConfiguration(body []byte) (vcc.Domain, error) {
	const op = "getVCCConfiguration"

	b, err := parse(op, body)
	if err != nil {
		return vcc.Domain{}, err
	}
	r := b.FindElement("getVCCConfigurationResponse/return")
	if r == nil {
		return vcc.Domain{}, vcc.Errorf(vcc.KindParse, op, "%v: missing getVCCConfigurationResponse/return", vcc.ErrParse)
	}
	id, ok := childText(r, "domainId")
	if !ok || strings.TrimSpace(id) == "" {
		return vcc.Domain{}, vcc.Errorf(vcc.KindParse, op, "%v: missing domainId", vcc.ErrParse)
	}
	name, _ := childText(r, "domainName")
	return vcc.Domain{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}, nil
}

// ConfigurationProbe 以 getVCCConfiguration 啟動網域
type ConfigurationProbe struct{}

// Request 實現 vcc.DomainProbe
func (ConfigurationProbe) Request() string {
	return GetVCCConfigurationRequest()
}

// ParseDomain 實現 vcc.DomainProbe
func (ConfigurationProbe) ParseDomain(body []byte) (vcc.Domain, error) {
	return ExtractVCCConfiguration(body)
}
