package variant

import (
	"testing"

	"github.com/matryer/is"

	"github.com/daddykev/ddex-suite-sub003/internal/graph"
)

func TestDetectByNamespace(t *testing.T) {
	is := is.New(t)
	cases := map[string]graph.Variant{
		`<NewReleaseMessage xmlns="http://ddex.net/xml/ern/43"/>`:  graph.V43,
		`<NewReleaseMessage xmlns="http://ddex.net/xml/ern/42"/>`:  graph.V42,
		`<NewReleaseMessage xmlns="http://ddex.net/xml/ern/382"/>`: graph.V382,
	}
	for xmlDoc, want := range cases {
		got, err := Detect([]byte(xmlDoc))
		is.NoErr(err)
		is.Equal(got, want)
	}
}

func TestDetectBySchemaVersionAttribute(t *testing.T) {
	is := is.New(t)
	got, err := Detect([]byte(`<NewReleaseMessage MessageSchemaVersionId="ern/43"/>`))
	is.NoErr(err)
	is.Equal(got, graph.V43)
}

func TestDetectUnsupported(t *testing.T) {
	is := is.New(t)
	_, err := Detect([]byte(`<SomeOtherFormat xmlns="http://example.com/other"/>`))
	is.True(err != nil)
}
