// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package actualizer

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/expectlink/services/linker/ast"
	"github.com/AleutianAI/expectlink/services/linker/fqname"
	"github.com/AleutianAI/expectlink/services/linker/index"
)

// catalog accumulates the actual side of a run.
//
// It is created by buildCatalog, filled by collect and then owned by the
// run; nothing else writes to it.
type catalog struct {
	classes *index.ClassTable
	members []*ast.Declaration
	aliases fqname.AliasMap
	visited map[*ast.Declaration]struct{}

	typeAliases int
	skipped     int
	logger      *slog.Logger
}

func newCatalog(logger *slog.Logger) *catalog {
	return &catalog{
		classes: index.NewClassTable(),
		aliases: make(fqname.AliasMap),
		visited: make(map[*ast.Declaration]struct{}),
		logger:  logger,
	}
}

// actualFragments returns the fragments that may hold actuals: every
// dependent fragment but the least specific one, then main.
func actualFragments(p *ast.Program) []*ast.Fragment {
	var out []*ast.Fragment
	if len(p.Dependents) > 1 {
		out = append(out, p.Dependents[1:]...)
	}
	return append(out, p.Main)
}

// collect records the actuals reachable from d.
//
// Description:
//
//	Files are walked transparently. An actual type alias catalogues its
//	expanded class under the alias's own name, records the redirection and
//	walks the expanded class, which may be a synthetic declaration reachable
//	only through the alias. Expected classes are skipped with their
//	members; other classes are catalogued and walked once. Enum entries are
//	always collected; expected functions, constructors and properties never.
func (c *catalog) collect(d *ast.Declaration) error {
	switch d.Kind {
	case ast.DeclKindFile:
		return c.collectChildren(d)

	case ast.DeclKindTypeAlias:
		if !d.Actual {
			return nil
		}
		var target *ast.Declaration
		if d.Expanded != nil {
			target = d.Expanded.Class()
		}
		if target == nil {
			c.skipped++
			c.logger.Debug("actual type alias does not expand to a class",
				slog.String("alias", string(d.ID)),
			)
			return nil
		}
		if err := c.put(fqname.ForActual(d), target); err != nil {
			return err
		}
		if err := c.collect(target); err != nil {
			return err
		}
		c.aliases[fqname.Of(d)] = fqname.Of(target)
		c.typeAliases++
		return nil

	case ast.DeclKindClass:
		if d.Expect {
			return nil
		}
		if _, seen := c.visited[d]; seen {
			return nil
		}
		c.visited[d] = struct{}{}
		if err := c.put(fqname.ForActual(d), d); err != nil {
			return err
		}
		return c.collectChildren(d)

	case ast.DeclKindEnumEntry:
		c.members = append(c.members, d)
		return nil

	case ast.DeclKindFunction, ast.DeclKindConstructor, ast.DeclKindProperty:
		if d.Expect {
			return nil
		}
		c.members = append(c.members, d)
		return nil

	case ast.DeclKindTypeParameter:
		return nil

	default:
		panic(fmt.Sprintf("actualizer: unhandled declaration kind %s", d.Kind))
	}
}

func (c *catalog) collectChildren(d *ast.Declaration) error {
	for _, child := range d.Declarations {
		if err := c.collect(child); err != nil {
			return err
		}
	}
	return nil
}

func (c *catalog) put(name string, class *ast.Declaration) error {
	replaced, err := c.classes.Put(name, class)
	if err != nil {
		return fmt.Errorf("cataloguing %s: %w", name, err)
	}
	if replaced != nil && replaced != class {
		c.logger.Debug("actual class replaced in catalog",
			slog.String("name", name),
			slog.String("previous", string(replaced.ID)),
			slog.String("current", string(class.ID)),
		)
	}
	return nil
}

// memberIndex buckets the catalogued members by structural name.
//
// Names go through the alias map so a member of an expanded class is
// found under the alias's name too.
func (c *catalog) memberIndex() (*index.MemberIndex, error) {
	idx := index.NewMemberIndex(index.WithExpectedSize(len(c.members)))
	for _, m := range c.members {
		if err := idx.Add(fqname.FromExpect(m, c.aliases), m); err != nil {
			return nil, fmt.Errorf("indexing %s: %w", m.ID, err)
		}
	}
	idx.Freeze()
	return idx, nil
}
