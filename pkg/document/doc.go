// Package document defines the JSON/YAML snapshot format diffed by the
// listdiff command and server.
//
// A document lists sections and their elements:
//
//	sections:
//	  - id: inbox
//	    kind: group
//	    attrs: {title: Inbox}
//	    elements:
//	      - {id: m1, kind: item, data: {subject: Hello}}
//	      - {id: n1, kind: text, data: {text: "2 unread"}}
//
// Every section and element is identified by its kind and id. How content is
// compared depends on the kind: item and group compare all data or attrs,
// text compares only data.text. Further kinds can be added to a Registry;
// unknown kinds compare like item.
package document
