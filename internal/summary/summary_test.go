package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terraform-archviz/pkg/arch"
)

func testArchitecture() *arch.Architecture {
	return &arch.Architecture{
		Provider:         arch.ProviderAWS,
		StateVersion:     4,
		TerraformVersion: "1.5.7",
		Resources: []arch.Resource{
			{Address: "aws_vpc.main", Type: "aws_vpc", Name: "main"},
			{Address: "aws_instance.web", Type: "aws_instance", Name: "web"},
			{Address: "aws_instance.worker", Type: "aws_instance", Name: "worker"},
			{Address: "aws_s3_bucket.assets", Type: "aws_s3_bucket", Name: "assets"},
			{Address: "aws_security_group.db", Type: "aws_security_group", Name: "db"},
		},
		Edges: []arch.Edge{
			{From: "aws_instance.web", To: "aws_vpc.main", Kind: arch.EdgeExplicit},
		},
		Groups: &arch.GroupNode{
			Label: "aws",
			Children: []*arch.GroupNode{
				{Label: "main", Level: 1, Members: []string{"aws_vpc.main"}},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	s := Build(testArchitecture())

	assert.Equal(t, arch.ProviderAWS, s.Provider)
	assert.Equal(t, 5, s.TotalResources)
	assert.Equal(t, 4, s.TypeCount)
	assert.Equal(t, 1, s.EdgeCount)
	assert.Equal(t, 2, s.GroupCount)
	assert.Equal(t, 2, s.ResourceCounts["aws_instance"])

	assert.Equal(t, 2, s.Categories.Compute)
	assert.Equal(t, 1, s.Categories.Storage) // s3 bucket
	assert.Equal(t, 1, s.Categories.Network) // vpc
	assert.Equal(t, 1, s.Categories.Security)
}

func TestBuildEmpty(t *testing.T) {
	s := Build(&arch.Architecture{
		Provider: arch.ProviderUnknown,
		Groups:   &arch.GroupNode{Label: "ungrouped"},
	})
	assert.Equal(t, 0, s.TotalResources)
	assert.Equal(t, 1, s.GroupCount)
}

func TestText(t *testing.T) {
	s := Build(testArchitecture())
	text := s.Text()

	assert.Contains(t, text, "Provider: aws")
	assert.Contains(t, text, "Total resources: 5 (4 types)")
	assert.Contains(t, text, "aws_instance: 2")

	// deterministic rendering
	require.Equal(t, text, Build(testArchitecture()).Text())
}
