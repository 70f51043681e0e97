package ast_test

import (
	"fmt"
	"testing"

	"github.com/mna/udecomp/lang/ast"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	n := &ast.Name{ID: "x", Ctx: ast.Load}
	require.Equal(t, "name x", fmt.Sprintf("%v", n))
	require.Equal(t, "name x", fmt.Sprintf("%s", n))
}

func TestWalkVisitsChildren(t *testing.T) {
	mod := &ast.Module{Body: []ast.Stmt{
		&ast.Assign{
			Targets: []ast.Expr{&ast.Name{ID: "x", Ctx: ast.Store}},
			Value:   &ast.Constant{Value: int64(1)},
		},
		&ast.Return{Value: &ast.Name{ID: "x", Ctx: ast.Load}},
	}}

	var visited []string
	ast.Walk(ast.VisitorFunc(func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir == ast.VisitEnter {
			visited = append(visited, fmt.Sprintf("%v", n))
		}
		return ast.VisitorFunc(func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
			if dir == ast.VisitEnter {
				visited = append(visited, fmt.Sprintf("%v", n))
			}
			return nil
		})
	}), mod)

	require.Equal(t, []string{"module", "assign", "return"}, visited)
}

func TestExprContextString(t *testing.T) {
	require.Equal(t, "load", ast.Load.String())
	require.Equal(t, "store", ast.Store.String())
}
