// Package astindex builds a source index from an application laid out as Go
// source: a root package carrying the app doc, Version constant and URL
// table, with controllers/, permissions/, serializers/ and views/ packages
// beside it. It walks the parsed ASTs with ParseComments and performs pure
// retrieval: no doc text is interpreted here.
package astindex

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/CloudCIX/docgen/internal/source"
)

type parsedFile struct {
	path string
	file *ast.File
}

// Load resolves the application rooted at dir and builds its index. It
// returns a *source.DiscoveryError when the root package cannot be parsed;
// missing construct packages just leave their category empty.
func Load(dir string) (*source.Index, error) {
	fset := token.NewFileSet()

	rootFiles, err := parseDir(fset, dir)
	if err != nil {
		return nil, &source.DiscoveryError{App: dir, Err: err}
	}
	if len(rootFiles) == 0 {
		return nil, &source.DiscoveryError{App: dir, Err: fmt.Errorf("no Go files in application root")}
	}

	app := source.App{Name: rootFiles[0].file.Name.Name}
	for _, pf := range rootFiles {
		if pf.file.Doc != nil && app.Description.Absent() {
			app.Description = docOf(fset, pf.file.Doc)
		}
		if v := versionConst(pf.file); v != "" {
			app.Version = v
		}
	}

	idx := source.NewIndex(app)

	if err := loadControllers(fset, filepath.Join(dir, "controllers"), idx); err != nil {
		return nil, err
	}
	if err := loadPermissions(fset, filepath.Join(dir, "permissions"), idx); err != nil {
		return nil, err
	}
	if err := loadSerializers(fset, filepath.Join(dir, "serializers"), idx); err != nil {
		return nil, err
	}
	if err := loadViews(fset, filepath.Join(dir, "views"), idx); err != nil {
		return nil, err
	}
	for _, pf := range rootFiles {
		loadURLPatterns(fset, pf, idx)
	}

	return idx, nil
}

// parseDir parses the Go files directly inside dir, sorted by filename so
// discovery order is stable across runs.
func parseDir(fset *token.FileSet, dir string) ([]parsedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []parsedFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		files = append(files, parsedFile{path: path, file: file})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

// parseOptionalDir is parseDir for construct packages, which may not exist.
func parseOptionalDir(fset *token.FileSet, dir string) ([]parsedFile, error) {
	files, err := parseDir(fset, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &source.DiscoveryError{App: dir, Err: err}
	}
	return files, nil
}

func loadViews(fset *token.FileSet, dir string, idx *source.Index) error {
	files, err := parseOptionalDir(fset, dir)
	if err != nil {
		return err
	}
	for _, pf := range files {
		module := fileStem(pf.path)
		idx.AddModule(source.Module{Name: module, Doc: docOf(fset, pf.file.Doc)})

		for _, st := range structsOf(pf.file) {
			name := st.spec.Name.Name
			if !strings.HasSuffix(name, "Collection") && !strings.HasSuffix(name, "Resource") {
				continue
			}
			c := &source.Construct{
				Category: source.View,
				Name:     name,
				Module:   module,
				Doc:      docOf(fset, st.doc),
				Line:     fset.Position(st.spec.Pos()).Line,
			}
			for _, m := range methodsOf(fset, pf.file, name) {
				switch m.Name {
				case "Get", "Post", "Put", "Patch", "Delete":
					m.Name = strings.ToLower(m.Name)
					c.Methods = append(c.Methods, m)
				}
			}
			idx.Add(c)
		}
	}
	return nil
}

func loadSerializers(fset *token.FileSet, dir string, idx *source.Index) error {
	files, err := parseOptionalDir(fset, dir)
	if err != nil {
		return err
	}
	for _, pf := range files {
		for _, st := range structsOf(pf.file) {
			name := st.spec.Name.Name
			if !strings.HasSuffix(name, "Serializer") {
				continue
			}
			c := &source.Construct{
				Category: source.Serializer,
				Name:     name,
				Module:   fileStem(pf.path),
				Doc:      docOf(fset, st.doc),
				Line:     fset.Position(st.spec.Pos()).Line,
				Fields:   serializerFields(st.spec),
			}
			idx.Add(c)
		}
	}
	return nil
}

func loadControllers(fset *token.FileSet, dir string, idx *source.Index) error {
	files, err := parseOptionalDir(fset, dir)
	if err != nil {
		return err
	}
	for _, pf := range files {
		for _, st := range structsOf(pf.file) {
			name := st.spec.Name.Name
			if !strings.HasSuffix(name, "Controller") {
				continue
			}
			c := &source.Construct{
				Category: source.Controller,
				Name:     name,
				Module:   fileStem(pf.path),
				Doc:      docOf(fset, st.doc),
				Line:     fset.Position(st.spec.Pos()).Line,
			}
			for _, m := range methodsOf(fset, pf.file, name) {
				if strings.HasPrefix(m.Name, "Validate") {
					c.Methods = append(c.Methods, m)
				}
			}
			applyMeta(pf.file, name, c)
			idx.Add(c)
		}
	}
	return nil
}

func loadPermissions(fset *token.FileSet, dir string, idx *source.Index) error {
	files, err := parseOptionalDir(fset, dir)
	if err != nil {
		return err
	}
	for _, pf := range files {
		for _, st := range structsOf(pf.file) {
			if st.spec.Name.Name != "Permissions" {
				continue
			}
			c := &source.Construct{
				Category: source.Permission,
				Name:     fileStem(pf.path),
				Module:   fileStem(pf.path),
				Doc:      docOf(fset, st.doc),
				Line:     fset.Position(st.spec.Pos()).Line,
			}
			for _, m := range methodsOf(fset, pf.file, "Permissions") {
				switch m.Name {
				case "List", "Read", "Create", "Update", "Delete":
					m.Name = strings.ToLower(m.Name)
					c.Methods = append(c.Methods, m)
				}
			}
			idx.Add(c)
		}
	}
	return nil
}

// loadURLPatterns reads the URLPatterns composite literal from a root file.
// Each element needs a Pattern string and a View named by string or by a
// composite literal of the view type.
func loadURLPatterns(fset *token.FileSet, pf parsedFile, idx *source.Index) {
	ast.Inspect(pf.file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, name := range vs.Names {
			if name.Name != "URLPatterns" || i >= len(vs.Values) {
				continue
			}
			lit, ok := vs.Values[i].(*ast.CompositeLit)
			if !ok {
				continue
			}
			for _, elt := range lit.Elts {
				entry, ok := elt.(*ast.CompositeLit)
				if !ok {
					continue
				}
				c := &source.Construct{
					Category: source.URLEntry,
					Module:   fileStem(pf.path),
					Line:     fset.Position(entry.Pos()).Line,
				}
				for _, kv := range entry.Elts {
					pair, ok := kv.(*ast.KeyValueExpr)
					if !ok {
						continue
					}
					key, ok := pair.Key.(*ast.Ident)
					if !ok {
						continue
					}
					switch key.Name {
					case "Pattern":
						c.Pattern = stringLit(pair.Value)
					case "View":
						c.ViewName = viewRef(pair.Value)
					}
				}
				c.Name = c.Pattern
				idx.Add(c)
			}
		}
		return false
	})
}

type structDecl struct {
	spec *ast.TypeSpec
	doc  *ast.CommentGroup
}

// structsOf yields the struct type declarations of a file in source order,
// with the doc comment of the enclosing GenDecl.
func structsOf(file *ast.File) []structDecl {
	var out []structDecl
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if _, ok := ts.Type.(*ast.StructType); !ok {
				continue
			}
			doc := ts.Doc
			if doc == nil {
				doc = gd.Doc
			}
			out = append(out, structDecl{spec: ts, doc: doc})
		}
	}
	return out
}

// methodsOf yields the methods declared on typeName, in source order.
func methodsOf(fset *token.FileSet, file *ast.File, typeName string) []source.Method {
	var out []source.Method
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || len(fd.Recv.List) != 1 {
			continue
		}
		if receiverType(fd.Recv.List[0].Type) != typeName {
			continue
		}
		out = append(out, source.Method{
			Name: fd.Name.Name,
			Doc:  docOf(fset, fd.Doc),
			Line: fset.Position(fd.Pos()).Line,
		})
	}
	return out
}

// applyMeta extracts the controller metadata from the composite literal
// returned by its Meta method.
func applyMeta(file *ast.File, typeName string, c *source.Construct) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name.Name != "Meta" || fd.Recv == nil || len(fd.Recv.List) != 1 {
			continue
		}
		if receiverType(fd.Recv.List[0].Type) != typeName {
			continue
		}
		lit := returnedLiteral(fd)
		if lit == nil {
			return
		}
		for _, elt := range lit.Elts {
			pair, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				continue
			}
			key, ok := pair.Key.(*ast.Ident)
			if !ok {
				continue
			}
			switch key.Name {
			case "ValidationOrder":
				c.ValidationOrder = stringSlice(pair.Value)
			case "AllowedOrdering":
				c.AllowedOrdering = stringSlice(pair.Value)
			case "SearchFields":
				c.SearchFields = searchFields(pair.Value)
			}
		}
		return
	}
}

// returnedLiteral finds the composite literal of the method's only return.
func returnedLiteral(fd *ast.FuncDecl) *ast.CompositeLit {
	if fd.Body == nil {
		return nil
	}
	for _, stmt := range fd.Body.List {
		ret, ok := stmt.(*ast.ReturnStmt)
		if !ok || len(ret.Results) != 1 {
			continue
		}
		if lit, ok := ret.Results[0].(*ast.CompositeLit); ok {
			return lit
		}
	}
	return nil
}

// serializerFields reads the declared field set from json struct tags, in
// declaration order. Tags starting with old_ are compatibility aliases and
// excluded from the documented field set.
func serializerFields(ts *ast.TypeSpec) []string {
	st := ts.Type.(*ast.StructType)
	var fields []string
	for _, fld := range st.Fields.List {
		if fld.Tag == nil {
			continue
		}
		tag := reflect.StructTag(strings.Trim(fld.Tag.Value, "`")).Get("json")
		if i := strings.IndexByte(tag, ','); i >= 0 {
			tag = tag[:i]
		}
		if tag == "" || tag == "-" || strings.HasPrefix(tag, "old_") {
			continue
		}
		fields = append(fields, tag)
	}
	return fields
}

func receiverType(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

func docOf(fset *token.FileSet, cg *ast.CommentGroup) source.Doc {
	if cg == nil {
		return source.Doc{}
	}
	return source.Doc{
		Text: strings.TrimRight(cg.Text(), "\n"),
		Line: fset.Position(cg.Pos()).Line,
	}
}

func stringLit(expr ast.Expr) string {
	if bl, ok := expr.(*ast.BasicLit); ok && bl.Kind == token.STRING {
		return strings.Trim(bl.Value, `"`)
	}
	return ""
}

// viewRef resolves the View value of a URL entry: a plain string, an
// identifier, or a composite literal of the view type.
func viewRef(expr ast.Expr) string {
	switch v := expr.(type) {
	case *ast.BasicLit:
		return stringLit(v)
	case *ast.Ident:
		return v.Name
	case *ast.CompositeLit:
		return typeName(v.Type)
	case *ast.UnaryExpr:
		return viewRef(v.X)
	}
	return ""
}

func typeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	}
	return ""
}

func stringSlice(expr ast.Expr) []string {
	lit, ok := expr.(*ast.CompositeLit)
	if !ok {
		return nil
	}
	var out []string
	for _, elt := range lit.Elts {
		if s := stringLit(elt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// searchFields reads a map[string][]string composite literal, preserving
// the source declaration order of its keys.
func searchFields(expr ast.Expr) []source.SearchField {
	lit, ok := expr.(*ast.CompositeLit)
	if !ok {
		return nil
	}
	var out []source.SearchField
	for _, elt := range lit.Elts {
		pair, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		out = append(out, source.SearchField{
			Name:      stringLit(pair.Key),
			Modifiers: stringSlice(pair.Value),
		})
	}
	return out
}

// versionConst reads the root package's Version string constant.
func versionConst(file *ast.File) string {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for i, name := range vs.Names {
				if name.Name == "Version" && i < len(vs.Values) {
					return stringLit(vs.Values[i])
				}
			}
		}
	}
	return ""
}

// fileStem returns the file name without directory or extension.
func fileStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".go")
}
