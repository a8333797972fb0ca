package group

import "terraform-archviz/pkg/arch"

// DefaultRuleSets is the built-in container hierarchy per provider:
// Azure groups by resource group then virtual network, AWS by VPC then
// subnet, GCP by network. Loaded once at startup and passed explicitly.
func DefaultRuleSets() map[arch.Provider]RuleSet {
	return map[arch.Provider]RuleSet{
		arch.ProviderAzure: {
			Levels: []LevelRule{
				{
					Types:       []string{"azurerm_resource_group"},
					MemberAttrs: []string{"resource_group_name"},
				},
				{
					Types:       []string{"azurerm_virtual_network"},
					MemberAttrs: []string{"virtual_network_name", "subnet_id"},
				},
			},
		},
		arch.ProviderAWS: {
			Levels: []LevelRule{
				{
					Types:       []string{"aws_vpc"},
					MemberAttrs: []string{"vpc_id"},
				},
				{
					Types:       []string{"aws_subnet"},
					MemberAttrs: []string{"subnet_id"},
				},
			},
		},
		arch.ProviderGCP: {
			Levels: []LevelRule{
				{
					Types:       []string{"google_compute_network"},
					MemberAttrs: []string{"network"},
				},
			},
		},
	}
}
