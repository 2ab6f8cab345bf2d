package relation

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// ToCypher renders r as Neo4j Cypher statements, one per line. Characters
// become :Character nodes and every edge a relationship labelled with the
// upper-cased type; MERGE keeps the script idempotent.
func ToCypher(r Result) string {
	var b strings.Builder
	for _, name := range r.Characters {
		fmt.Fprintf(&b, "MERGE (:Character {name: '%s'});\n", escapeCypher(name))
	}
	for _, e := range r.Relationships {
		fmt.Fprintf(&b, "MATCH (a:Character {name: '%s'}), (b:Character {name: '%s'}) MERGE (a)-[:%s {indicator: '%s'}]->(b);\n",
			escapeCypher(e.Character1),
			escapeCypher(e.Character2),
			strings.ToUpper(string(e.Type)),
			escapeCypher(e.Indicator),
		)
	}
	return b.String()
}

func escapeCypher(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

type graphML struct {
	XMLName xml.Name   `xml:"http://graphml.graphdrawing.org/xmlns graphml"`
	Keys    []graphKey `xml:"key"`
	Graph   graph      `xml:"graph"`
}

type graphKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graph struct {
	ID          string      `xml:"id,attr"`
	EdgeDefault string      `xml:"edgedefault,attr"`
	Nodes       []graphNode `xml:"node"`
	Edges       []graphEdge `xml:"edge"`
}

type graphNode struct {
	ID   string      `xml:"id,attr"`
	Data []graphData `xml:"data"`
}

type graphEdge struct {
	ID     string      `xml:"id,attr"`
	Source string      `xml:"source,attr"`
	Target string      `xml:"target,attr"`
	Data   []graphData `xml:"data"`
}

type graphData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// ToGraphML renders r as a directed GraphML document. Node ids are n0..nN
// in character order; edges point from Character1 to Character2.
func ToGraphML(r Result) ([]byte, error) {
	ids := make(map[string]string, len(r.Characters))
	doc := graphML{
		Keys: []graphKey{
			{ID: "name", For: "node", AttrName: "name", AttrType: "string"},
			{ID: "type", For: "edge", AttrName: "type", AttrType: "string"},
			{ID: "indicator", For: "edge", AttrName: "indicator", AttrType: "string"},
		},
		Graph: graph{ID: "relationships", EdgeDefault: "directed"},
	}
	for i, name := range r.Characters {
		id := fmt.Sprintf("n%d", i)
		ids[name] = id
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphNode{
			ID:   id,
			Data: []graphData{{Key: "name", Value: name}},
		})
	}
	for i, e := range r.Relationships {
		src, ok1 := ids[e.Character1]
		dst, ok2 := ids[e.Character2]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("edge %d references unknown character", i)
		}
		doc.Graph.Edges = append(doc.Graph.Edges, graphEdge{
			ID:     fmt.Sprintf("e%d", i),
			Source: src,
			Target: dst,
			Data: []graphData{
				{Key: "type", Value: string(e.Type)},
				{Key: "indicator", Value: e.Indicator},
			},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding graphml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
