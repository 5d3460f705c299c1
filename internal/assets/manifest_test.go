package assets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleMetafile = `{
  "outputs": {
    "public/assets/app.js": {
      "entryPoint": "ui/app.tsx",
      "imports": [
        {"path": "public/assets/chunks/shared-ABC123.js", "kind": "import-statement"},
        {"path": "https://cdn.example.com/react.js", "kind": "import-statement", "external": true}
      ],
      "cssBundle": "public/assets/app.css"
    },
    "public/assets/chunks/shared-ABC123.js": {
      "imports": [
        {"path": "public/assets/chunks/vendor-DEF456.js", "kind": "import-statement"}
      ]
    },
    "public/assets/chunks/vendor-DEF456.js": {
      "imports": []
    },
    "public/assets/app.css": {
      "imports": []
    }
  }
}`

func TestManifest_ScriptsOrdered(t *testing.T) {
	m, err := ParseManifest([]byte(sampleMetafile))
	require.NoError(t, err)

	scripts, err := m.Scripts("ui/app.tsx")
	require.NoError(t, err)
	require.Equal(t, []string{
		"public/assets/app.js",
		"public/assets/chunks/shared-ABC123.js",
		"public/assets/chunks/vendor-DEF456.js",
	}, scripts)
}

func TestManifest_ScriptsUnknownEntry(t *testing.T) {
	m, err := ParseManifest([]byte(sampleMetafile))
	require.NoError(t, err)

	_, err = m.Scripts("ui/other.tsx")
	require.Error(t, err)
	require.ErrorContains(t, err, "not found")
}

func TestManifest_Styles(t *testing.T) {
	m, err := ParseManifest([]byte(sampleMetafile))
	require.NoError(t, err)

	styles, err := m.Styles("ui/app.tsx")
	require.NoError(t, err)
	require.Equal(t, []string{"public/assets/app.css"}, styles)
}

func TestManifest_Version(t *testing.T) {
	m1, err := ParseManifest([]byte(sampleMetafile))
	require.NoError(t, err)
	require.NotEmpty(t, m1.Version())

	// same bytes, same fingerprint
	m2, err := ParseManifest([]byte(sampleMetafile))
	require.NoError(t, err)
	require.Equal(t, m1.Version(), m2.Version())

	// any change to the metafile changes the fingerprint
	m3, err := ParseManifest([]byte(`{"outputs": {}}`))
	require.NoError(t, err)
	require.NotEqual(t, m1.Version(), m3.Version())
}

func TestManifest_CyclicImports(t *testing.T) {
	cyclic := `{
	  "outputs": {
	    "public/assets/a.js": {
	      "entryPoint": "ui/app.tsx",
	      "imports": [{"path": "public/assets/b.js", "kind": "import-statement"}]
	    },
	    "public/assets/b.js": {
	      "imports": [{"path": "public/assets/a.js", "kind": "import-statement"}]
	    }
	  }
	}`

	m, err := ParseManifest([]byte(cyclic))
	require.NoError(t, err)

	scripts, err := m.Scripts("ui/app.tsx")
	require.NoError(t, err)
	require.Equal(t, []string{"public/assets/a.js", "public/assets/b.js"}, scripts)
}

func TestParseManifest_Invalid(t *testing.T) {
	_, err := ParseManifest([]byte("not json"))
	require.Error(t, err)
}
