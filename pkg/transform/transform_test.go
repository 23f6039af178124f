// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package transform_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/location"
	"github.com/tplforge/tplforge/pkg/transform"
)

func mustGet(d *document.Document, keys ...string) *document.Document {
	for _, k := range keys {
		v, ok := d.Get(k)
		if !ok {
			Fail("missing key " + k)
		}
		d = v
	}
	return d
}

func mustString(d *document.Document) string {
	s, ok := d.AsString()
	ExpectWithOffset(1, ok).To(BeTrue(), "expected a string document")
	return s
}

var emptyLoader = location.NewLoader()

var _ = Describe("Transform", func() {
	ctx := context.Background()

	It("S1: resolves $defs bindings and interpolates a string", func() {
		root := document.Map(
			document.Entry{Key: "$defs", Value: document.Map(
				document.Entry{Key: "name", Value: document.String("world")},
			)},
			document.Entry{Key: "Message", Value: document.String("hello {{name}}")},
		)

		out, err := transform.Transform(ctx, emptyLoader, root, "root.yaml")
		Expect(err).NotTo(HaveOccurred())
		Expect(mustString(mustGet(out, "Message"))).To(Equal("hello world"))
		_, hasDefs := out.Get("$defs")
		Expect(hasDefs).To(BeFalse())
	})

	It("S2: $include drills through a dotted selector", func() {
		root := document.Map(
			document.Entry{Key: "$defs", Value: document.Map(
				document.Entry{Key: "cfg", Value: document.Map(
					document.Entry{Key: "a", Value: document.Map(
						document.Entry{Key: "b", Value: document.Int(42)},
					)},
				)},
			)},
			document.Entry{Key: "X", Value: document.Tag("$include", document.String("cfg.a.b"))},
		)

		out, err := transform.Transform(ctx, emptyLoader, root, "root.yaml")
		Expect(err).NotTo(HaveOccurred())
		Expect(mustGet(out, "X").Int).To(Equal(int64(42)))
	})

	It("S3: $map renders a template once per item", func() {
		root := document.Map(
			document.Entry{Key: "$defs", Value: document.Map(
				document.Entry{Key: "xs", Value: document.Seq(document.Int(1), document.Int(2), document.Int(3))},
			)},
			document.Entry{Key: "Ys", Value: document.Tag("$map", document.Map(
				document.Entry{Key: "items", Value: document.Tag("$include", document.String("xs"))},
				document.Entry{Key: "template", Value: document.String("{{item}}!")},
			))},
		)

		out, err := transform.Transform(ctx, emptyLoader, root, "root.yaml")
		Expect(err).NotTo(HaveOccurred())
		ys := mustGet(out, "Ys")
		Expect(ys.Kind).To(Equal(document.KindSeq))
		Expect(ys.Seq).To(HaveLen(3))
		Expect(mustString(ys.Seq[0])).To(Equal("1!"))
		Expect(mustString(ys.Seq[1])).To(Equal("2!"))
		Expect(mustString(ys.Seq[2])).To(Equal("3!"))
	})

	template := func(allowedValues ...*document.Document) *document.Document {
		paramDecl := document.Map(document.Entry{Key: "Name", Value: document.String("N")})
		if len(allowedValues) > 0 {
			_ = paramDecl.Set("AllowedValues", document.Seq(allowedValues...))
		}
		return document.Map(
			document.Entry{Key: "$params", Value: document.Seq(paramDecl)},
			document.Entry{Key: "Resources", Value: document.Map(
				document.Entry{Key: "R", Value: document.Map(
					document.Entry{Key: "Type", Value: document.String("AWS::X")},
					document.Entry{Key: "Properties", Value: document.Map(
						document.Entry{Key: "V", Value: document.String("{{N}}")},
					)},
				)},
			)},
		)
	}

	It("S4: expands a user-defined template with a name prefix", func() {
		root := document.Map(
			document.Entry{Key: "$defs", Value: document.Map(
				document.Entry{Key: "T", Value: template()},
			)},
			document.Entry{Key: "Resources", Value: document.Map(
				document.Entry{Key: "foo", Value: document.Map(
					document.Entry{Key: "Type", Value: document.String("T")},
					document.Entry{Key: "NamePrefix", Value: document.String("Pre")},
					document.Entry{Key: "Properties", Value: document.Map(
						document.Entry{Key: "N", Value: document.String("hi")},
					)},
				)},
			)},
		)

		out, err := transform.Transform(ctx, emptyLoader, root, "root.yaml")
		Expect(err).NotTo(HaveOccurred())
		resources := mustGet(out, "Resources")
		preR := mustGet(resources, "PreR")
		Expect(mustString(mustGet(preR, "Type"))).To(Equal("AWS::X"))
		Expect(mustString(mustGet(preR, "Properties", "V"))).To(Equal("hi"))
	})

	It("S5: rejects a parameter value outside AllowedValues", func() {
		root := document.Map(
			document.Entry{Key: "$defs", Value: document.Map(
				document.Entry{Key: "T", Value: template(document.String("a"), document.String("b"))},
			)},
			document.Entry{Key: "Resources", Value: document.Map(
				document.Entry{Key: "foo", Value: document.Map(
					document.Entry{Key: "Type", Value: document.String("T")},
					document.Entry{Key: "Properties", Value: document.Map(
						document.Entry{Key: "N", Value: document.String("c")},
					)},
				)},
			)},
		)

		_, err := transform.Transform(ctx, emptyLoader, root, "root.yaml")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("foo"))
	})

	It("S6: stamps Metadata.iidy provenance and the template format version", func() {
		root := document.Map(
			document.Entry{Key: "AWSTemplateFormatVersion", Value: document.String("2010-09-09")},
			document.Entry{Key: "Resources", Value: document.Map()},
		)

		out, err := transform.Transform(ctx, emptyLoader, root, "root.yaml")
		Expect(err).NotTo(HaveOccurred())
		Expect(mustString(mustGet(out, "AWSTemplateFormatVersion"))).To(Equal("2010-09-09"))
		imports := mustGet(out, "Metadata", "iidy", "Imports")
		Expect(imports.Kind).To(Equal(document.KindSeq))
		Expect(imports.Seq).To(HaveLen(0))
		for _, section := range []string{"Parameters", "Conditions", "Mappings", "Outputs"} {
			Expect(mustGet(out, section).Kind).To(Equal(document.KindMap))
		}
	})

	It("S7: Overrides adds a sibling resource without misrouting through Resources dispatch", func() {
		root := document.Map(
			document.Entry{Key: "$defs", Value: document.Map(
				document.Entry{Key: "T", Value: template()},
			)},
			document.Entry{Key: "Resources", Value: document.Map(
				document.Entry{Key: "foo", Value: document.Map(
					document.Entry{Key: "Type", Value: document.String("T")},
					document.Entry{Key: "Properties", Value: document.Map(
						document.Entry{Key: "N", Value: document.String("hi")},
					)},
					document.Entry{Key: "Overrides", Value: document.Map(
						document.Entry{Key: "Resources", Value: document.Map(
							document.Entry{Key: "R2", Value: document.Map(
								document.Entry{Key: "Type", Value: document.String("AWS::Y")},
							)},
						)},
					)},
				)},
			)},
		)

		out, err := transform.Transform(ctx, emptyLoader, root, "root.yaml")
		Expect(err).NotTo(HaveOccurred())
		resources := mustGet(out, "Resources")
		r := mustGet(resources, "fooR")
		Expect(mustString(mustGet(r, "Properties", "V"))).To(Equal("hi"))
		r2 := mustGet(resources, "fooR2")
		Expect(mustString(mustGet(r2, "Type"))).To(Equal("AWS::Y"))
	})
})
