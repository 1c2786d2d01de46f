package estimator

import "strings"

// DefaultRegion is the AWS region assumed when the architecture names none
const DefaultRegion = "us-east-1"

// NoResult is returned by Estimate when the agent produced no text
const NoResult = "No estimation result."

// SystemPrompt instructs the model to act as a cost estimation expert
const SystemPrompt = `You are an AWS Cost Estimation Expert Agent.

Your role is to analyze system architecture descriptions and provide accurate AWS cost estimates.

PRINCIPLE:
- Speed is essential. Because we can adjust the architecture later, focus on providing a quick estimate first.
- Talk inquirer's language. If they ask in English, respond in English. If they ask in Japanese, respond in Japanese.
- Use tools appropriately. Don't input numbers to toolUse.

PROCESS:
1. Parse the architecture description to identify AWS services needed
2. Use pricing tools to retrieve current AWS pricing data for identified services and regions
3. Calculate costs with the retrieved pricing data
4. Provide cost estimation with unit prices and monthly totals

CRITICAL TOOL INPUT FORMAT:
- ALWAYS enclose ALL numbers in double quotes when using tools
- Example: use "0.0104" instead of 0.0104 in tool inputs

OUTPUT FORMAT:
- Architecture description
- Service list with unit prices and monthly totals
- Discussion points
`

const estimationPrompt = `
Please analyze this architecture and provide a detailed AWS cost estimate:

{architecture_description}

Please:
1. Identify all required AWS services
2. Retrieve current pricing data
3. Calculate monthly and yearly costs
4. Provide cost optimization recommendations
5. Show your calculations
`

// EstimationPrompt formats the user prompt for the given architecture description
func EstimationPrompt(architectureDescription string) string {
	return strings.Replace(estimationPrompt, "{architecture_description}", architectureDescription, 1)
}

func systemPrompt(region string) string {
	return SystemPrompt + "\nAssume the " + region + " region unless the architecture states otherwise.\n"
}
