// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package template_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/tplforge/tplforge/pkg/document"
	"github.com/tplforge/tplforge/pkg/envstack"
	"github.com/tplforge/tplforge/pkg/template"
)

// identityEval evaluates every node to itself, so Expand's plumbing
// (prefixing, param merging, hoisting) can be tested without pulling
// in pkg/transform's full dispatch.
type identityEval struct{}

func (identityEval) Evaluate(_ context.Context, doc *document.Document, _ *envstack.Env) (*document.Document, error) {
	if doc == nil {
		return document.Null(), nil
	}
	return doc, nil
}

type recordingAcc struct {
	hoisted map[string]*document.Document
}

func newRecordingAcc() *recordingAcc {
	return &recordingAcc{hoisted: map[string]*document.Document{}}
}

func (a *recordingAcc) Hoist(section, key string, value *document.Document) error {
	a.hoisted[section+"."+key] = value
	return nil
}

var _ = Describe("Expander", func() {
	ctx := context.Background()

	newTemplateDoc := func(paramDecl *document.Document) *document.Document {
		return document.Map(
			document.Entry{Key: "$params", Value: document.Seq(paramDecl)},
			document.Entry{Key: "Resources", Value: document.Map(
				document.Entry{Key: "R", Value: document.Map(
					document.Entry{Key: "Type", Value: document.String("AWS::X")},
				)},
			)},
			document.Entry{Key: "Outputs", Value: document.Map(
				document.Entry{Key: "O", Value: document.String("ref")},
			)},
		)
	}

	It("prefixes expanded resource names and hoists global sections", func() {
		paramDecl := document.Map(
			document.Entry{Key: "Name", Value: document.String("Size")},
			document.Entry{Key: "Default", Value: document.Int(1)},
		)
		templateDoc := newTemplateDoc(paramDecl)
		resourceNode := document.Map(
			document.Entry{Key: "Type", Value: document.String("T")},
			document.Entry{Key: "Properties", Value: document.Map(
				document.Entry{Key: "Size", Value: document.Int(5)},
			)},
		)

		acc := newRecordingAcc()
		x := template.New(identityEval{}, acc)
		out, err := x.Expand(ctx, templateDoc, envstack.New("template.yaml"), "foo", resourceNode, envstack.New("root.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveKey("fooR"))

		Expect(acc.hoisted).To(HaveKey("Outputs.fooO"))
		s, _ := acc.hoisted["Outputs.fooO"].AsString()
		Expect(s).To(Equal("ref"))
	})

	It("rejects a missing required parameter", func() {
		paramDecl := document.Map(document.Entry{Key: "Name", Value: document.String("Size")})
		templateDoc := newTemplateDoc(paramDecl)
		resourceNode := document.Map(document.Entry{Key: "Type", Value: document.String("T")})

		x := template.New(identityEval{}, newRecordingAcc())
		_, err := x.Expand(ctx, templateDoc, envstack.New("template.yaml"), "foo", resourceNode, envstack.New("root.yaml"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Size"))
	})

	It("rejects a value outside AllowedValues", func() {
		paramDecl := document.Map(
			document.Entry{Key: "Name", Value: document.String("Size")},
			document.Entry{Key: "AllowedValues", Value: document.Seq(document.Int(1), document.Int(2))},
		)
		templateDoc := newTemplateDoc(paramDecl)
		resourceNode := document.Map(
			document.Entry{Key: "Type", Value: document.String("T")},
			document.Entry{Key: "Properties", Value: document.Map(
				document.Entry{Key: "Size", Value: document.Int(3)},
			)},
		)

		x := template.New(identityEval{}, newRecordingAcc())
		_, err := x.Expand(ctx, templateDoc, envstack.New("template.yaml"), "foo", resourceNode, envstack.New("root.yaml"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("AllowedValues"))
	})

	It("merges Overrides onto the template before expansion", func() {
		paramDecl := document.Map(document.Entry{Key: "Name", Value: document.String("Size")}, document.Entry{Key: "Default", Value: document.Int(1)})
		templateDoc := newTemplateDoc(paramDecl)
		resourceNode := document.Map(
			document.Entry{Key: "Type", Value: document.String("T")},
			document.Entry{Key: "Properties", Value: document.Map(
				document.Entry{Key: "Size", Value: document.Int(1)},
			)},
			document.Entry{Key: "Overrides", Value: document.Map(
				document.Entry{Key: "Resources", Value: document.Map(
					document.Entry{Key: "R2", Value: document.Map(
						document.Entry{Key: "Type", Value: document.String("AWS::Y")},
					)},
				)},
			)},
		)

		x := template.New(identityEval{}, newRecordingAcc())
		out, err := x.Expand(ctx, templateDoc, envstack.New("template.yaml"), "foo", resourceNode, envstack.New("root.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveKey("fooR"))
		Expect(out).To(HaveKey("fooR2"))
	})
})
