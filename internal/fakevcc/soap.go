package fakevcc

import (
	"io"
	"net/http"
	"strings"

	"github.com/beevik/etree"
)

const (
	nsEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"
	nsService  = "http://service.admin.ws.five9.com/"
)

// handleSOAP 依 Body 的第一個子元素分派 SOAP 操作
func (s *Server) handleSOAP(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeFault(w, http.StatusBadRequest, "env:Client", "unreadable request")
		return
	}

	req := etree.NewDocument()
	if err := req.ReadFromBytes(data); err != nil {
		writeFault(w, http.StatusBadRequest, "env:Client", "malformed envelope")
		return
	}
	body := req.FindElement("//Envelope/Body")
	if body == nil || len(body.ChildElements()) == 0 {
		writeFault(w, http.StatusBadRequest, "env:Client", "missing operation")
		return
	}
	op := body.ChildElements()[0]
	s.count(op.Tag)

	switch op.Tag {
	case "getVCCConfiguration":
		s.getVCCConfiguration(w)
	case "getIVRScripts":
		pattern := ""
		if p := op.SelectElement("namePattern"); p != nil {
			pattern = p.Text()
		}
		s.getIVRScripts(w, pattern)
	case "modifyIVRScript":
		s.modifyIVRScript(w, op)
	default:
		writeFault(w, http.StatusInternalServerError, "env:Server", "unsupported operation "+op.Tag)
	}
}

func (s *Server) getVCCConfiguration(w http.ResponseWriter) {
	s.mu.Lock()
	failing := s.configFails > 0
	if failing {
		s.configFails--
	}
	id, name := s.domainID, s.domainName
	s.mu.Unlock()

	if failing {
		writeFault(w, http.StatusInternalServerError, "env:Server", "service temporarily unavailable")
		return
	}

	writeEnvelope(w, http.StatusOK, func(body *etree.Element) {
		resp := body.CreateElement("ns2:getVCCConfigurationResponse")
		resp.CreateAttr("xmlns:ns2", nsService)
		ret := resp.CreateElement("return")
		ret.CreateElement("domainId").SetText(id)
		ret.CreateElement("domainName").SetText(name)
	})
}

func (s *Server) getIVRScripts(w http.ResponseWriter, pattern string) {
	s.mu.Lock()
	var matches []ivrScript
	for _, name := range s.scriptOrder {
		if strings.Contains(name, pattern) {
			matches = append(matches, *s.scripts[name])
		}
	}
	s.mu.Unlock()

	writeEnvelope(w, http.StatusOK, func(body *etree.Element) {
		resp := body.CreateElement("ns2:getIVRScriptsResponse")
		resp.CreateAttr("xmlns:ns2", nsService)
		for _, sc := range matches {
			ret := resp.CreateElement("return")
			ret.CreateElement("description").SetText("")
			ret.CreateElement("name").SetText(sc.name)
			ret.CreateElement("xmlDefinition").SetText(sc.definition)
		}
	})
}

func (s *Server) modifyIVRScript(w http.ResponseWriter, op *etree.Element) {
	nameEl := op.FindElement("scriptDef/name")
	defEl := op.FindElement("scriptDef/xmlDefinition")
	if nameEl == nil || defEl == nil {
		writeFault(w, http.StatusInternalServerError, "env:Server", "scriptDef requires name and xmlDefinition")
		return
	}
	name := nameEl.Text()
	def := strings.TrimSpace(defEl.Text())

	// 送出的定義必須是合法的 XML
	check := etree.NewDocument()
	check.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := check.ReadFromString(def); err != nil {
		writeFault(w, http.StatusInternalServerError, "env:Server", "Invalid script definition: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.rejectModify[name]; ok {
		writeFault(w, status, "env:Server", "Script "+name+" is locked")
		return
	}
	sc, ok := s.scripts[name]
	if !ok {
		writeFault(w, http.StatusInternalServerError, "env:Server", "Script "+name+" not found")
		return
	}
	sc.definition = def
	sc.modified++

	writeEnvelope(w, http.StatusOK, func(body *etree.Element) {
		resp := body.CreateElement("ns2:modifyIVRScriptResponse")
		resp.CreateAttr("xmlns:ns2", nsService)
	})
}

func writeEnvelope(w http.ResponseWriter, status int, build func(body *etree.Element)) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("env:Envelope")
	env.CreateAttr("xmlns:env", nsEnvelope)
	env.CreateElement("env:Header")
	build(env.CreateElement("env:Body"))

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = doc.WriteTo(w)
}

func writeFault(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, func(body *etree.Element) {
		fault := body.CreateElement("env:Fault")
		fault.CreateElement("faultcode").SetText(code)
		fault.CreateElement("faultstring").SetText(message)
	})
}
