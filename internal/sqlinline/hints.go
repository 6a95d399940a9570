package sqlinline

const QSelectCampaignHints = `--sql bfb37694-8aae-485f-b308-13641e172bb1
select id, name, channel, size
from campaigns
where id = $1::text;
`

const QSelectSegmentHints = `--sql f61361ec-638d-4e3b-a97f-1d9cb8c3ca61
select id, name, tone, keywords, creative_template_id
from segments
where id = $1::text;
`

const QSelectPromptTemplate = `--sql 1b76aa14-d790-456b-b221-ec5af1cb1fe4
select id, name, body
from prompt_templates
where id = $1::text;
`

const QSelectCreativeTemplate = `--sql e3d4f57d-ee6c-43b7-96aa-6673c8e8b7bd
select id, name, image_size
from creative_templates
where id = $1::text;
`
