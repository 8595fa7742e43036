package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

const maxPort = 65535

// adminPorts are remote administration and database ports that must never be
// reachable from the internet.
var adminPorts = map[int]string{
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	1433:  "MSSQL",
	1521:  "Oracle",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5985:  "WinRM",
	5986:  "WinRM",
	6379:  "Redis",
	9200:  "Elasticsearch",
	27017: "MongoDB",
}

// Resource types that carry inbound firewall rules.
var (
	awsGroupTypes     = []string{"aws_security_group"}
	awsGroupRuleTypes = []string{"aws_security_group_rule", "aws_vpc_security_group_ingress_rule"}
	nsgTypes          = []string{"azurerm_network_security_group", "network-security-group"}
	nsgRuleTypes      = []string{"azurerm_network_security_rule"}
)

// exposure is one inbound rule open to the internet.
type exposure struct {
	Rule     string
	Source   string
	FromPort int
	ToPort   int
}

func (e exposure) allPorts() bool { return e.FromPort <= 0 && e.ToPort >= maxPort }

// openAdminPorts returns the admin ports inside the exposed range, ascending.
func (e exposure) openAdminPorts() []int {
	var out []int
	for p := range adminPorts {
		if p >= e.FromPort && p <= e.ToPort {
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

func (e exposure) dangerous() bool { return e.allPorts() || len(e.openAdminPorts()) > 0 }

func (e exposure) String() string {
	ports := fmt.Sprintf("%d-%d", e.FromPort, e.ToPort)
	switch {
	case e.allPorts():
		ports = "all ports"
	case e.FromPort == e.ToPort:
		ports = fmt.Sprintf("port %d", e.FromPort)
	}
	if e.Rule != "" {
		return fmt.Sprintf("%s (%s from %s)", e.Rule, ports, e.Source)
	}
	return fmt.Sprintf("%s from %s", ports, e.Source)
}

func isOpenSource(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0.0.0.0/0", "::/0", "*", "internet", "any":
		return true
	}
	return false
}

func containsType(types []string, t string) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// exposures returns every internet-facing inbound rule declared on node.
func exposures(node *models.ResourceNode) []exposure {
	t := node.Address.Type
	switch {
	case containsType(awsGroupTypes, t):
		var out []exposure
		for _, b := range blocks(node, "ingress") {
			out = append(out, awsIngress(b)...)
		}
		return out
	case containsType(awsGroupRuleTypes, t):
		self := models.MapValue(node.Attributes)
		if kind, ok := field(self, "type"); ok && !strings.EqualFold(kind.Str, "ingress") {
			return nil
		}
		return awsIngress(self)
	case containsType(nsgTypes, t):
		var out []exposure
		for _, b := range blocks(node, "security_rule") {
			out = append(out, nsgInbound(b)...)
		}
		return out
	case containsType(nsgRuleTypes, t):
		return nsgInbound(models.MapValue(node.Attributes))
	}
	return nil
}

func awsIngress(block models.Value) []exposure {
	from, to := 0, maxPort
	proto := ""
	if v, ok := field(block, "protocol", "ip_protocol"); ok {
		proto = strings.ToLower(v.Str)
	}
	if proto != "-1" && proto != "all" {
		if v, ok := field(block, "from_port"); ok {
			if n, ok := numberOf(v); ok {
				from = int(n)
			}
		}
		if v, ok := field(block, "to_port"); ok {
			if n, ok := numberOf(v); ok {
				to = int(n)
			}
		}
		if from == 0 && to == 0 {
			to = maxPort
		}
	}

	var sources []string
	for _, key := range []string{"cidr_blocks", "ipv6_cidr_blocks", "cidr_ipv4", "cidr_ipv6"} {
		if v, ok := field(block, key); ok {
			sources = append(sources, v.Strings()...)
		}
	}

	label := ""
	if v, ok := field(block, "description"); ok {
		label = v.Str
	}

	var out []exposure
	for _, src := range sources {
		if isOpenSource(src) {
			out = append(out, exposure{Rule: label, Source: src, FromPort: from, ToPort: to})
		}
	}
	return out
}

func nsgInbound(block models.Value) []exposure {
	if v, ok := field(block, "direction"); ok && !strings.EqualFold(v.Str, "inbound") {
		return nil
	}
	if v, ok := field(block, "access"); ok && !strings.EqualFold(v.Str, "allow") {
		return nil
	}

	var sources []string
	for _, key := range []string{"source_address_prefix", "source_address_prefixes", "sourceAddressPrefix"} {
		if v, ok := field(block, key); ok {
			sources = append(sources, v.Strings()...)
		}
	}

	var ranges []string
	for _, key := range []string{"destination_port_range", "destination_port_ranges", "destinationPortRange"} {
		if v, ok := field(block, key); ok {
			ranges = append(ranges, v.Strings()...)
		}
	}

	name := ""
	if v, ok := field(block, "name"); ok {
		name = v.Str
	}

	var out []exposure
	for _, src := range sources {
		if !isOpenSource(src) {
			continue
		}
		for _, r := range ranges {
			from, to, ok := parsePortRange(r)
			if !ok {
				continue
			}
			out = append(out, exposure{Rule: name, Source: src, FromPort: from, ToPort: to})
		}
	}
	return out
}

// parsePortRange accepts "*", "22" and "8000-8080".
func parsePortRange(s string) (from, to int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "*" {
		return 0, maxPort, true
	}
	lo, hi, isRange := strings.Cut(s, "-")
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, false
	}
	if !isRange {
		return from, from, true
	}
	to, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || to < from {
		return 0, 0, false
	}
	return from, to, true
}

// groupExposures returns the exposures of a firewall node together with those
// of standalone rule resources attached to it in the graph.
func groupExposures(g *graph.Graph, group *models.ResourceNode) []exposure {
	out := exposures(group)
	if g == nil {
		return out
	}
	seen := map[string]bool{}
	for _, e := range g.Incoming(group.Address.String()) {
		if seen[e.From] {
			continue
		}
		seen[e.From] = true
		src := g.Node(e.From)
		if src == nil {
			continue
		}
		if containsType(awsGroupRuleTypes, src.Address.Type) || containsType(nsgRuleTypes, src.Address.Type) {
			out = append(out, exposures(src)...)
		}
	}
	return out
}

func describe(exps []exposure) string {
	parts := make([]string, len(exps))
	for i, e := range exps {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

func dangerousOnly(exps []exposure) []exposure {
	var out []exposure
	for _, e := range exps {
		if e.dangerous() {
			out = append(out, e)
		}
	}
	return out
}
