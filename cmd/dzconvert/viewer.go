package main

import (
	"io"
	"path/filepath"
	"text/template"
)

var viewerTmpl = template.Must(template.New("viewer").Parse(`
To use with OpenSeadragon, add this to your HTML:

<div id="openseadragon" style="width: 800px; height: 600px;"></div>
<script src="https://cdn.jsdelivr.net/npm/openseadragon@latest/build/openseadragon/openseadragon.min.js"></script>
<script>
    var viewer = OpenSeadragon({
        id: "openseadragon",
        prefixUrl: "https://cdn.jsdelivr.net/npm/openseadragon@latest/build/openseadragon/images/",
        tileSources: "{{js .TileSources}}"
    });
</script>
`))

// writeViewerSnippet prints the HTML needed to show descriptor in a page
// served from the current directory
func writeViewerSnippet(w io.Writer, descriptor string) error {
	return viewerTmpl.Execute(w, struct{ TileSources string }{filepath.ToSlash(descriptor)})
}
