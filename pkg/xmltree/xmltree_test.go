package xmltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<iati-activities version="2.02">
	<iati-activity default-currency="USD" xml:lang="en">
		<iati-identifier>XM-DAC-1-1</iati-identifier>
		<title>
			<narrative>Water project</narrative>
			<narrative xml:lang="fr">Projet d'eau</narrative>
		</title>
	</iati-activity>
</iati-activities>`)

	root, err := Decode(doc)
	require.NoError(t, err)

	assert.Equal(t, "iati-activities", root.Tag())
	assert.Equal(t, "2.02", root.Attr("version"))
	require.Len(t, root.Children, 1)

	activity := root.Children[0]
	assert.Equal(t, "iati-activity", activity.Tag())
	assert.Equal(t, "USD", activity.Attr("default-currency"))
	assert.Equal(t, "en", activity.Lang())
	assert.Equal(t, "XM-DAC-1-1", activity.ChildText("iati-identifier"))

	title := activity.Child("title")
	require.NotNil(t, title)
	require.Len(t, title.Children, 2)
	assert.Equal(t, "Water project", title.Children[0].TrimmedText())
	assert.Equal(t, "fr", title.Children[1].Lang())
}

func TestDecode_MalformedXML(t *testing.T) {
	_, err := Decode([]byte(`<iati-activities><iati-activity>`))
	assert.Error(t, err)
}

func TestElement_Attr(t *testing.T) {
	root, err := Decode([]byte(`<el a="1" b=""/>`))
	require.NoError(t, err)

	assert.Equal(t, "1", root.Attr("a"))
	assert.Equal(t, "", root.Attr("b"))
	assert.Equal(t, "", root.Attr("missing"))

	assert.True(t, root.HasAttr("b"))
	assert.False(t, root.HasAttr("missing"))
}

func TestElement_ChildText(t *testing.T) {
	root, err := Decode([]byte(`<el><name>  padded  </name><empty/></el>`))
	require.NoError(t, err)

	assert.Equal(t, "padded", root.ChildText("name"))
	assert.Equal(t, "", root.ChildText("empty"))
	assert.Equal(t, "", root.ChildText("missing"))
	assert.Nil(t, root.Child("missing"))
}
