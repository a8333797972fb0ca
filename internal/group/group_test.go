package group

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terraform-archviz/pkg/arch"
)

func findChild(n *arch.GroupNode, label string) *arch.GroupNode {
	for _, c := range n.Children {
		if c.Label == label {
			return c
		}
	}
	return nil
}

func TestBuildAzureHierarchy(t *testing.T) {
	resources := []arch.Resource{
		{Address: "azurerm_resource_group.main", Type: "azurerm_resource_group", Name: "main",
			ComputedAttributes: map[string]any{"name": "prod-rg"}},
		{Address: "azurerm_virtual_network.net", Type: "azurerm_virtual_network", Name: "net",
			ComputedAttributes: map[string]any{"resource_group_name": "prod-rg"}},
		{Address: "azurerm_virtual_machine.web", Type: "azurerm_virtual_machine", Name: "web"},
	}
	edges := []arch.Edge{
		{From: "azurerm_virtual_network.net", To: "azurerm_resource_group.main", Kind: arch.EdgeExplicit},
		{From: "azurerm_virtual_machine.web", To: "azurerm_resource_group.main", Kind: arch.EdgeExplicit},
	}

	root := Build(resources, edges, arch.ProviderAzure, DefaultRuleSets())
	require.NotNil(t, root)
	assert.Equal(t, "azure", root.Label)
	assert.Equal(t, 0, root.Level)

	rg := findChild(root, "main")
	require.NotNil(t, rg)
	assert.Equal(t, 1, rg.Level)
	assert.Contains(t, rg.Members, "azurerm_resource_group.main")
	// VM attaches to the resource group it depends on
	assert.Contains(t, rg.Members, "azurerm_virtual_machine.web")

	// VNet nests under the resource group
	vnet := findChild(rg, "net")
	require.NotNil(t, vnet)
	assert.Equal(t, 2, vnet.Level)
	assert.Contains(t, vnet.Members, "azurerm_virtual_network.net")
}

func TestBuildAzureAttributeBinding(t *testing.T) {
	// no edges at all: the vnet still lands in its resource group via
	// the resource_group_name attribute
	resources := []arch.Resource{
		{Address: "azurerm_resource_group.main", Type: "azurerm_resource_group", Name: "main",
			ComputedAttributes: map[string]any{"name": "prod-rg"}},
		{Address: "azurerm_virtual_network.net", Type: "azurerm_virtual_network", Name: "net",
			ComputedAttributes: map[string]any{"resource_group_name": "prod-rg"}},
	}

	root := Build(resources, nil, arch.ProviderAzure, DefaultRuleSets())
	rg := findChild(root, "main")
	require.NotNil(t, rg)
	require.NotNil(t, findChild(rg, "net"))
}

func TestBuildAWSVpcGrouping(t *testing.T) {
	resources := []arch.Resource{
		{Address: "aws_vpc.main", Type: "aws_vpc", Name: "main",
			ComputedAttributes: map[string]any{"id": "vpc-0a1b2c3d"}},
		{Address: "aws_instance.web", Type: "aws_instance", Name: "web",
			ComputedAttributes: map[string]any{"vpc_id": "vpc-0a1b2c3d"}},
		{Address: "aws_s3_bucket.assets", Type: "aws_s3_bucket", Name: "assets"},
	}

	root := Build(resources, nil, arch.ProviderAWS, DefaultRuleSets())

	vpc := findChild(root, "main")
	require.NotNil(t, vpc)
	assert.Contains(t, vpc.Members, "aws_instance.web")

	ungrouped := findChild(root, "ungrouped")
	require.NotNil(t, ungrouped)
	assert.Equal(t, []string{"aws_s3_bucket.assets"}, ungrouped.Members)
}

func TestBuildDeepestContainerWins(t *testing.T) {
	resources := []arch.Resource{
		{Address: "aws_vpc.main", Type: "aws_vpc", Name: "main"},
		{Address: "aws_subnet.private", Type: "aws_subnet", Name: "private"},
		{Address: "aws_instance.web", Type: "aws_instance", Name: "web"},
	}
	edges := []arch.Edge{
		{From: "aws_subnet.private", To: "aws_vpc.main"},
		{From: "aws_instance.web", To: "aws_vpc.main"},
		{From: "aws_instance.web", To: "aws_subnet.private"},
	}

	root := Build(resources, edges, arch.ProviderAWS, DefaultRuleSets())
	vpc := findChild(root, "main")
	require.NotNil(t, vpc)
	subnet := findChild(vpc, "private")
	require.NotNil(t, subnet)
	// instance has edges into both levels; the subnet is deeper
	assert.Contains(t, subnet.Members, "aws_instance.web")
	assert.NotContains(t, vpc.Members, "aws_instance.web")
}

func TestBuildTieBreakFirstContainer(t *testing.T) {
	resources := []arch.Resource{
		{Address: "aws_vpc.a", Type: "aws_vpc", Name: "a"},
		{Address: "aws_vpc.b", Type: "aws_vpc", Name: "b"},
		{Address: "aws_instance.web", Type: "aws_instance", Name: "web"},
	}
	edges := []arch.Edge{
		{From: "aws_instance.web", To: "aws_vpc.b"},
		{From: "aws_instance.web", To: "aws_vpc.a"},
	}

	root := Build(resources, edges, arch.ProviderAWS, DefaultRuleSets())
	// both containers qualify at the same level: resource-sequence
	// order decides, not edge order
	a := findChild(root, "a")
	require.NotNil(t, a)
	assert.Contains(t, a.Members, "aws_instance.web")
}

func TestBuildUnknownProviderFlat(t *testing.T) {
	resources := []arch.Resource{
		{Address: "random_pet.x", Type: "random_pet", Name: "x"},
		{Address: "null_resource.y", Type: "null_resource", Name: "y"},
	}

	root := Build(resources, nil, arch.ProviderUnknown, DefaultRuleSets())
	assert.Equal(t, "ungrouped", root.Label)
	assert.Empty(t, root.Children)
	assert.Equal(t, []string{"random_pet.x", "null_resource.y"}, root.Members)
}

func TestBuildEmpty(t *testing.T) {
	root := Build(nil, nil, arch.ProviderUnknown, DefaultRuleSets())
	require.NotNil(t, root)
	assert.Empty(t, root.Members)
	assert.Empty(t, root.Children)
}

func TestBuildFullCoverage(t *testing.T) {
	resources := []arch.Resource{
		{Address: "aws_vpc.main", Type: "aws_vpc", Name: "main"},
		{Address: "aws_subnet.a", Type: "aws_subnet", Name: "a"},
		{Address: "aws_instance.web", Type: "aws_instance", Name: "web"},
		{Address: "aws_s3_bucket.assets", Type: "aws_s3_bucket", Name: "assets"},
		{Address: "azurerm_subnet.stray", Type: "azurerm_subnet", Name: "stray"},
	}
	edges := []arch.Edge{
		{From: "aws_subnet.a", To: "aws_vpc.main"},
		{From: "aws_instance.web", To: "aws_subnet.a"},
	}

	root := Build(resources, edges, arch.ProviderAWS, DefaultRuleSets())

	got := root.AllMembers()
	sort.Strings(got)
	want := make([]string, 0, len(resources))
	for _, r := range resources {
		want = append(want, r.Address)
	}
	sort.Strings(want)
	assert.Equal(t, want, got, "every resource appears exactly once")
}
