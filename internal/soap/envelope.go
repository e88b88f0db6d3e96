// =============================================================================
// Webshop Sales Report - SOAP Envelope
// =============================================================================
//
// This module builds the request envelopes sent to the webshop API and decodes
// the envelopes it returns.
//
// REQUEST STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"
//                      xmlns:ns1="urn:webshop">
//     <SOAP-ENV:Body>
//       <ns1:Order_GetByDate>              <!-- Operation element -->
//         <Start>2023-12-01</Start>        <!-- Parameters, in call order -->
//         <End>2023-12-31</End>
//         <Status>8</Status>
//       </ns1:Order_GetByDate>
//     </SOAP-ENV:Body>
//   </SOAP-ENV:Envelope>
//
// =============================================================================

package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// EnvelopeNamespace is the SOAP 1.1 envelope namespace.
const EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"

// =============================================================================
// REQUEST ENVELOPE
// =============================================================================

// Param is one named operation argument.
type Param struct {
	Name  string
	Value string
}

// Element is a generic XML element. Names carry their prefix literally.
type Element struct {
	Name       string
	Attributes []xml.Attr
	Value      string
	Children   []Element
}

// EnvelopeOptions controls envelope generation.
type EnvelopeOptions struct {
	// Namespace is bound to the "ns1" prefix of the operation element.
	Namespace string

	// Indent is the string used for indentation. Default: "  "
	Indent string
}

// BuildEnvelope renders the request envelope of operation with params.
func BuildEnvelope(operation string, params []Param, options EnvelopeOptions) []byte {
	if options.Indent == "" {
		options.Indent = "  "
	}

	call := Element{Name: "ns1:" + operation}
	for _, p := range params {
		call.Children = append(call.Children, Element{Name: p.Name, Value: p.Value})
	}

	envelope := Element{
		Name: "SOAP-ENV:Envelope",
		Attributes: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:SOAP-ENV"}, Value: EnvelopeNamespace},
			{Name: xml.Name{Local: "xmlns:ns1"}, Value: options.Namespace},
		},
		Children: []Element{{Name: "SOAP-ENV:Body", Children: []Element{call}}},
	}

	var buffer bytes.Buffer
	buffer.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	writeElement(&buffer, envelope, options.Indent, 0)
	return buffer.Bytes()
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element Element, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.Name)

	for _, attr := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value)))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.Name)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}

// =============================================================================
// RESPONSE ENVELOPE
// =============================================================================

// Fault is a SOAP fault returned by the service.
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Detail string `xml:"detail"`
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("soap fault %s: %s (%s)", f.Code, f.String, f.Detail)
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

type responseEnvelope struct {
	Body struct {
		Fault *Fault `xml:"Fault"`
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// decodeResponse extracts the operation response from an envelope into out.
// A fault in the body is returned as *Fault. A nil out only checks for faults.
func decodeResponse(data []byte, out interface{}) error {
	var envelope responseEnvelope
	if err := xml.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if envelope.Body.Fault != nil {
		return envelope.Body.Fault
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(envelope.Body.Inner)) == 0 {
		return fmt.Errorf("response envelope has an empty body")
	}
	if err := xml.Unmarshal(envelope.Body.Inner, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
